package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Estados de Compra.
const (
	CompraPendiente = "pendiente"
	CompraParcial   = "parcial"
	CompraRecibida  = "recibida"
)

// Compra is a purchase order. Stock is only affected by receipts.
type Compra struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Numero         string          `gorm:"type:varchar(50);not null;index"`
	UsuarioID      uuid.UUID       `gorm:"type:uuid;not null"`
	Proveedor      string          `gorm:"type:varchar(120);not null"`
	Total          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Estado         string          `gorm:"type:varchar(20);not null;default:'pendiente'"`
	Fecha          time.Time       `gorm:"not null;index"`
	FechaRecepcion *time.Time
	Eliminada      bool `gorm:"not null;default:false"`
	EliminadaEn    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Items []CompraItem `gorm:"foreignKey:CompraID;constraint:OnDelete:CASCADE"`
	Pagos []CompraPago `gorm:"foreignKey:CompraID;constraint:OnDelete:CASCADE"`
}

// CompraItem holds the requested quantity and the quantity accumulated by
// receipt events so far.
type CompraItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompraID         uuid.UUID       `gorm:"type:uuid;index;not null"`
	ProductoID       uuid.UUID       `gorm:"type:uuid;index;not null"`
	Cantidad         int             `gorm:"not null"`
	CantidadRecibida int             `gorm:"not null;default:0"`
	PrecioUnitario   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DescuentoPct     decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	Subtotal         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

// Pendiente returns how many units are still to be received.
func (i CompraItem) Pendiente() int {
	if p := i.Cantidad - i.CantidadRecibida; p > 0 {
		return p
	}
	return 0
}

type CompraPago struct {
	ID       uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompraID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Metodo   string          `gorm:"type:varchar(30);not null"`
	Monto    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PagadoEn time.Time       `gorm:"not null"`
}

// RecepcionItem is one goods-receipt event for a purchase line.
type RecepcionItem struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompraID     uuid.UUID `gorm:"type:uuid;index;not null"`
	CompraItemID uuid.UUID `gorm:"type:uuid;index;not null"`
	ProductoID   uuid.UUID `gorm:"type:uuid;not null"`
	Cantidad     int       `gorm:"not null"`
	UsuarioID    uuid.UUID `gorm:"type:uuid;not null"`
	Fecha        time.Time `gorm:"not null"`
}

func (RecepcionItem) TableName() string { return "recepciones_item" }

func (Compra) TableName() string     { return "compras" }
func (CompraItem) TableName() string { return "compra_items" }
func (CompraPago) TableName() string { return "compra_pagos" }
