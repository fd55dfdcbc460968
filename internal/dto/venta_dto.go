package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type VentaRequest struct {
	Numero  string        `json:"numero"  validate:"required,max=50"`
	Cliente *string       `json:"cliente" validate:"omitempty,max=120"`
	Fecha   *time.Time    `json:"fecha"`
	Items   []ItemRequest `json:"items"   validate:"required,min=1,dive"`
	Pagos   []PagoRequest `json:"pagos"   validate:"dive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type VentaResponse struct {
	ID          string              `json:"id"`
	Numero      string              `json:"numero"`
	UsuarioID   string              `json:"usuario_id"`
	Cliente     *string             `json:"cliente"`
	Fecha       string              `json:"fecha"`
	Total       decimal.Decimal     `json:"total"`
	Items       []ItemResponse      `json:"items"`
	Pagos       []PagoResponse      `json:"pagos"`
	Liquidacion LiquidacionResponse `json:"liquidacion"`
	Eliminada   bool                `json:"eliminada"`
	EliminadaEn *string             `json:"eliminada_en"`
}
