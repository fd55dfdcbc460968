package dto

import (
	"adminisgo/internal/ledger"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// MontosCaja is an amount per cash category as typed by the operator.
type MontosCaja struct {
	Efectivo decimal.Decimal `json:"efectivo" validate:"min=0"`
	Digital  decimal.Decimal `json:"digital"  validate:"min=0"`
	Credito  decimal.Decimal `json:"credito"  validate:"min=0"`
	Otro     decimal.Decimal `json:"otro"     validate:"min=0"`
}

func (m MontosCaja) Totales() ledger.Totales {
	return ledger.Totales{Efectivo: m.Efectivo, Digital: m.Digital, Credito: m.Credito, Otro: m.Otro}
}

type AbrirCajaRequest struct {
	MontosCaja
	Nota *string `json:"nota" validate:"omitempty,max=500"`
}

// CerrarCajaRequest closes the active session. Declaracion is the optional
// blind count; when present the response carries the deviation.
type CerrarCajaRequest struct {
	Declaracion   *MontosCaja `json:"declaracion"`
	Observaciones *string     `json:"observaciones" validate:"omitempty,max=500"`
}

type MovimientoCajaRequest struct {
	Tipo        string          `json:"tipo"        validate:"required,oneof=ingreso_manual egreso_manual"`
	MetodoPago  string          `json:"metodo_pago" validate:"required,max=30"`
	Monto       decimal.Decimal `json:"monto"       validate:"required,gt=0"`
	Descripcion string          `json:"descripcion" validate:"required,min=3"`
}

type CorreccionCajaRequest struct {
	MontosCaja
	Nota string `json:"nota" validate:"required,min=3,max=500"`
}

type HistorialCajaFilter struct {
	Page  int `form:"page,default=1"  validate:"min=1"`
	Limit int `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type DesvioResponse struct {
	Monto         decimal.Decimal `json:"monto"`
	Porcentaje    decimal.Decimal `json:"porcentaje"`
	Clasificacion string          `json:"clasificacion"` // normal | advertencia | critico
}

type SesionCajaResponse struct {
	AperturaID string          `json:"apertura_id"`
	UsuarioID  string          `json:"usuario_id"`
	AbiertaEn  string          `json:"abierta_en"`
	Inicial    ledger.Totales  `json:"inicial"`
	CerradaEn  *string         `json:"cerrada_en"`
	Cierre     *ledger.Totales `json:"cierre"`
	Abierta    bool            `json:"abierta"`
}

type TotalesCajaResponse struct {
	AperturaID string          `json:"apertura_id"`
	Inicial    ledger.Totales  `json:"inicial"`
	Corrientes ledger.Totales  `json:"corrientes"`
	Total      decimal.Decimal `json:"total"`
}

type CierreCajaResponse struct {
	AperturaID string          `json:"apertura_id"`
	CierreID   string          `json:"cierre_id"`
	Esperado   ledger.Totales  `json:"esperado"`
	Declarado  *ledger.Totales `json:"declarado"`
	Desvio     *DesvioResponse `json:"desvio"`
	CerradaEn  string          `json:"cerrada_en"`
}

type MovimientoCajaResponse struct {
	ID          string          `json:"id"`
	AperturaID  string          `json:"apertura_id"`
	Tipo        string          `json:"tipo"`
	MetodoPago  string          `json:"metodo_pago"`
	Categoria   string          `json:"categoria"`
	Monto       decimal.Decimal `json:"monto"`
	Descripcion string          `json:"descripcion"`
	CreatedAt   string          `json:"created_at"`
}

type RegistroCajaResponse struct {
	ID        string         `json:"id"`
	Tipo      string         `json:"tipo"`
	Fecha     string         `json:"fecha"`
	UsuarioID string         `json:"usuario_id"`
	Montos    ledger.Totales `json:"montos"`
	Nota      *string        `json:"nota"`
	CorrigeID *string        `json:"corrige_id"`
}

type HistorialCajaResponse struct {
	Data  []SesionCajaResponse `json:"data"`
	Total int                  `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}
