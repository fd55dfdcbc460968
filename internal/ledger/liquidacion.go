package ledger

import "github.com/shopspring/decimal"

// Estados de liquidación.
const (
	EstadoPagada = "pagada"
	EstadoDeuda  = "deuda"
)

// Epsilon absorbs rounding when comparing paid amounts against totals.
var Epsilon = decimal.NewFromFloat(0.01)

// Liquidacion is the settlement state of a sale or purchase.
type Liquidacion struct {
	Total  decimal.Decimal `json:"total"`
	Pagado decimal.Decimal `json:"pagado"`
	Deuda  decimal.Decimal `json:"deuda"`
	Estado string          `json:"estado"`
}

func (l Liquidacion) Pagada() bool { return l.Estado == EstadoPagada }

// Liquidar derives the settlement of a document from its total and payments.
// It keeps no state; callers recompute it after every payment change.
func Liquidar(total decimal.Decimal, pagos []decimal.Decimal) Liquidacion {
	pagado := decimal.Zero
	for _, p := range pagos {
		pagado = pagado.Add(p)
	}
	deuda := total.Sub(pagado)
	if deuda.IsNegative() {
		deuda = decimal.Zero
	}
	estado := EstadoDeuda
	if !total.IsPositive() || pagado.GreaterThanOrEqual(total.Sub(Epsilon)) {
		estado = EstadoPagada
	}
	return Liquidacion{Total: total, Pagado: pagado, Deuda: deuda, Estado: estado}
}
