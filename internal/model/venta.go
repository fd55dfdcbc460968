package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Venta is a sale header. Paid and debt amounts are never stored: they are
// derived from Pagos on every read (see ledger.Liquidar).
// Deleted sales are flagged, never removed.
type Venta struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Numero      string          `gorm:"type:varchar(50);not null;index"`
	UsuarioID   uuid.UUID       `gorm:"type:uuid;not null"`
	Cliente     *string         `gorm:"type:varchar(120)"`
	Total       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Fecha       time.Time       `gorm:"not null;index"`
	Eliminada   bool            `gorm:"not null;default:false"`
	EliminadaEn *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Items []VentaItem `gorm:"foreignKey:VentaID;constraint:OnDelete:CASCADE"`
	Pagos []VentaPago `gorm:"foreignKey:VentaID;constraint:OnDelete:CASCADE"`
}

type VentaItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID        uuid.UUID       `gorm:"type:uuid;index;not null"`
	ProductoID     uuid.UUID       `gorm:"type:uuid;index;not null"`
	Cantidad       int             `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DescuentoPct   decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

type VentaPago struct {
	ID       uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID  uuid.UUID       `gorm:"type:uuid;index;not null"`
	Metodo   string          `gorm:"type:varchar(30);not null"`
	Monto    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PagadoEn time.Time       `gorm:"not null;index"`
}

func (Venta) TableName() string     { return "ventas" }
func (VentaItem) TableName() string { return "venta_items" }
func (VentaPago) TableName() string { return "venta_pagos" }
