package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tipos de RegistroCaja.
const (
	RegistroApertura   = "apertura"
	RegistroCierre     = "cierre"
	RegistroCorreccion = "correccion"
)

// RegistroCaja is an append-only entry of the register ledger.
// Sessions are not stored: they are derived from apertura/cierre pairs.
// Rows are never updated; administrative corrections append a "correccion"
// entry pointing at the corrected row through CorrigeID.
type RegistroCaja struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Tipo  string    `gorm:"type:varchar(20);not null;index"`
	Fecha time.Time `gorm:"not null;index"`
	// Insertion order; breaks ties between entries with the same fecha.
	Secuencia int64           `gorm:"autoIncrement;not null;uniqueIndex"`
	UsuarioID uuid.UUID       `gorm:"type:uuid;not null"`
	Efectivo  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Digital   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Credito   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Otro      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Nota      *string
	CorrigeID *uuid.UUID `gorm:"type:uuid;index"`
}

func (RegistroCaja) TableName() string { return "registros_caja" }

// CajaEstado is the single-row marker of the active session. The fixed
// primary key makes a second concurrent apertura fail with a duplicate key.
type CajaEstado struct {
	ID         int       `gorm:"primaryKey;autoIncrement:false"`
	AperturaID uuid.UUID `gorm:"type:uuid;not null"`
	AbiertaEn  time.Time `gorm:"not null"`
}

func (CajaEstado) TableName() string { return "caja_estado" }

// CajaEstadoID is the only valid CajaEstado primary key.
const CajaEstadoID = 1

// MovimientoCaja is a manual cash-in / cash-out attributed to a session.
// Tipo: "ingreso_manual" | "egreso_manual". Egresos are stored negative.
// Movements are NEVER modified or deleted.
type MovimientoCaja struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	AperturaID  uuid.UUID       `gorm:"type:uuid;index;not null"`
	Tipo        string          `gorm:"type:varchar(20);not null"`
	MetodoPago  string          `gorm:"type:varchar(30);not null"`
	Monto       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Descripcion string          `gorm:"not null"`
	UsuarioID   uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt   time.Time
}

func (MovimientoCaja) TableName() string { return "movimientos_caja" }
