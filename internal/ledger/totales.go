package ledger

import "github.com/shopspring/decimal"

// Totales is an amount broken down by cash category.
type Totales struct {
	Efectivo decimal.Decimal `json:"efectivo"`
	Digital  decimal.Decimal `json:"digital"`
	Credito  decimal.Decimal `json:"credito"`
	Otro     decimal.Decimal `json:"otro"`
}

// Sumar adds monto to the bucket of the given payment method.
func (t Totales) Sumar(metodo string, monto decimal.Decimal) Totales {
	switch Categorizar(metodo) {
	case CategoriaEfectivo:
		t.Efectivo = t.Efectivo.Add(monto)
	case CategoriaDigital:
		t.Digital = t.Digital.Add(monto)
	case CategoriaCredito:
		t.Credito = t.Credito.Add(monto)
	default:
		t.Otro = t.Otro.Add(monto)
	}
	return t
}

// Mas returns the category-wise sum of t and o.
func (t Totales) Mas(o Totales) Totales {
	return Totales{
		Efectivo: t.Efectivo.Add(o.Efectivo),
		Digital:  t.Digital.Add(o.Digital),
		Credito:  t.Credito.Add(o.Credito),
		Otro:     t.Otro.Add(o.Otro),
	}
}

func (t Totales) Total() decimal.Decimal {
	return t.Efectivo.Add(t.Digital).Add(t.Credito).Add(t.Otro)
}

// Negativo reports whether any bucket is below zero.
func (t Totales) Negativo() bool {
	return t.Efectivo.IsNegative() || t.Digital.IsNegative() || t.Credito.IsNegative() || t.Otro.IsNegative()
}
