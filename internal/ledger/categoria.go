// Package ledger holds the pure read-side projections of the register ledger:
// payment categorization, session resolution and document settlement.
// Nothing here touches storage; callers replay records through these functions
// on every read.
package ledger

import "strings"

// Categorías de caja.
const (
	CategoriaEfectivo = "efectivo"
	CategoriaDigital  = "digital"
	CategoriaCredito  = "credito"
	CategoriaOtro     = "otro"
)

var categoriasPorMetodo = map[string]string{
	"efectivo": CategoriaEfectivo,
	"cash":     CategoriaEfectivo,

	"qr":             CategoriaDigital,
	"transferencia":  CategoriaDigital,
	"wire":           CategoriaDigital,
	"wire-transfer":  CategoriaDigital,
	"wire_transfer":  CategoriaDigital,
	"debito":         CategoriaDigital,
	"débito":         CategoriaDigital,
	"debit":          CategoriaDigital,
	"tarjeta debito": CategoriaDigital,

	"credito": CategoriaCredito,
	"crédito": CategoriaCredito,
	"credit":  CategoriaCredito,
}

// Categorizar maps a payment-method label to one of the four cash categories.
// It is total: unknown or empty labels fall into CategoriaOtro.
func Categorizar(metodo string) string {
	if c, ok := categoriasPorMetodo[strings.ToLower(strings.TrimSpace(metodo))]; ok {
		return c
	}
	return CategoriaOtro
}
