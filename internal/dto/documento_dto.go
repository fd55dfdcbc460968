package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shared shapes of ventas and compras: both are settled documents with line
// items and partial payments.

type ItemRequest struct {
	ProductoID     string          `json:"producto_id"     validate:"required,uuid"`
	Cantidad       int             `json:"cantidad"        validate:"required,gt=0"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario" validate:"min=0"`
	DescuentoPct   decimal.Decimal `json:"descuento_pct"   validate:"min=0,max=100"`
}

type PagoRequest struct {
	Metodo   string          `json:"metodo"    validate:"required,max=30"`
	Monto    decimal.Decimal `json:"monto"     validate:"required,gt=0"`
	PagadoEn *time.Time      `json:"pagado_en"`
}

type ItemResponse struct {
	ID             string          `json:"id"`
	ProductoID     string          `json:"producto_id"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	DescuentoPct   decimal.Decimal `json:"descuento_pct"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type PagoResponse struct {
	ID        string          `json:"id"`
	Metodo    string          `json:"metodo"`
	Categoria string          `json:"categoria"`
	Monto     decimal.Decimal `json:"monto"`
	PagadoEn  string          `json:"pagado_en"`
}

// LiquidacionResponse is computed on every read and never stored.
type LiquidacionResponse struct {
	Pagado decimal.Decimal `json:"pagado"`
	Deuda  decimal.Decimal `json:"deuda"`
	Estado string          `json:"estado"` // pagada | deuda
}
