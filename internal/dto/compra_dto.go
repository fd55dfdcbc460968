package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CompraRequest struct {
	Numero    string        `json:"numero"    validate:"required,max=50"`
	Proveedor string        `json:"proveedor" validate:"required,max=120"`
	Fecha     *time.Time    `json:"fecha"`
	Items     []ItemRequest `json:"items"     validate:"required,min=1,dive"`
	Pagos     []PagoRequest `json:"pagos"     validate:"dive"`
}

type RecepcionLineaRequest struct {
	CompraItemID string `json:"compra_item_id" validate:"required,uuid"`
	Cantidad     int    `json:"cantidad"       validate:"required,gt=0"`
}

// RecepcionRequest registers goods received. An empty Items list receives
// every pending quantity of the order.
type RecepcionRequest struct {
	Items []RecepcionLineaRequest `json:"items" validate:"dive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type CompraItemResponse struct {
	ItemResponse
	CantidadRecibida int `json:"cantidad_recibida"`
}

type RecepcionResponse struct {
	ID           string `json:"id"`
	CompraItemID string `json:"compra_item_id"`
	ProductoID   string `json:"producto_id"`
	Cantidad     int    `json:"cantidad"`
	Fecha        string `json:"fecha"`
}

type CompraResponse struct {
	ID             string               `json:"id"`
	Numero         string               `json:"numero"`
	UsuarioID      string               `json:"usuario_id"`
	Proveedor      string               `json:"proveedor"`
	Fecha          string               `json:"fecha"`
	Total          decimal.Decimal      `json:"total"`
	Estado         string               `json:"estado"` // pendiente | parcial | recibida
	FechaRecepcion *string              `json:"fecha_recepcion"`
	Items          []CompraItemResponse `json:"items"`
	Pagos          []PagoResponse       `json:"pagos"`
	Recepciones    []RecepcionResponse  `json:"recepciones,omitempty"`
	Liquidacion    LiquidacionResponse  `json:"liquidacion"`
	Eliminada      bool                 `json:"eliminada"`
	EliminadaEn    *string              `json:"eliminada_en"`
}
