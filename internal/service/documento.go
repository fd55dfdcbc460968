package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"adminisgo/internal/dto"
	"adminisgo/internal/ledger"
	"adminisgo/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

var cien = decimal.NewFromInt(100)

// linea is a validated line item with its computed subtotal.
type linea struct {
	productoID     uuid.UUID
	cantidad       int
	precioUnitario decimal.Decimal
	descuentoPct   decimal.Decimal
	subtotal       decimal.Decimal
}

// subtotalLinea = cantidad × precio × (1 − descuento/100), rounded to cents.
func subtotalLinea(cantidad int, precio, descuentoPct decimal.Decimal) decimal.Decimal {
	bruto := precio.Mul(decimal.NewFromInt(int64(cantidad)))
	return bruto.Mul(cien.Sub(descuentoPct)).Div(cien).Round(2)
}

// validarLineas checks every line before anything is written and returns
// them with subtotals plus the document total.
func validarLineas(ctx context.Context, productos repository.ProductoRepository, items []dto.ItemRequest, soloActivos bool) ([]linea, decimal.Decimal, error) {
	if len(items) == 0 {
		return nil, decimal.Zero, validacion("el documento debe tener al menos un ítem")
	}
	lineas := make([]linea, 0, len(items))
	total := decimal.Zero
	for i, it := range items {
		pid, err := uuid.Parse(it.ProductoID)
		if err != nil {
			return nil, decimal.Zero, validacion("ítem %d: producto_id inválido", i+1)
		}
		if it.Cantidad <= 0 {
			return nil, decimal.Zero, validacion("ítem %d: la cantidad debe ser mayor a cero", i+1)
		}
		if it.PrecioUnitario.IsNegative() {
			return nil, decimal.Zero, validacion("ítem %d: el precio no puede ser negativo", i+1)
		}
		if it.DescuentoPct.IsNegative() || it.DescuentoPct.GreaterThan(cien) {
			return nil, decimal.Zero, validacion("ítem %d: el descuento debe estar entre 0 y 100", i+1)
		}
		p, err := productos.FindByID(ctx, pid)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, decimal.Zero, validacion("ítem %d: producto %s no encontrado", i+1, pid)
			}
			return nil, decimal.Zero, err
		}
		if soloActivos && !p.Activo {
			return nil, decimal.Zero, validacion("ítem %d: el producto %s está inactivo", i+1, p.Nombre)
		}
		l := linea{
			productoID:     pid,
			cantidad:       it.Cantidad,
			precioUnitario: it.PrecioUnitario,
			descuentoPct:   it.DescuentoPct,
			subtotal:       subtotalLinea(it.Cantidad, it.PrecioUnitario, it.DescuentoPct),
		}
		total = total.Add(l.subtotal)
		lineas = append(lineas, l)
	}
	return lineas, total, nil
}

func validarPago(i int, p dto.PagoRequest) error {
	if strings.TrimSpace(p.Metodo) == "" {
		return validacion("pago %d: el método es obligatorio", i+1)
	}
	if !p.Monto.IsPositive() {
		return validacion("pago %d: el monto debe ser mayor a cero", i+1)
	}
	return nil
}

func validarPagos(pagos []dto.PagoRequest) error {
	for i, p := range pagos {
		if err := validarPago(i, p); err != nil {
			return err
		}
	}
	return nil
}

func validarNumero(numero string) error {
	if strings.TrimSpace(numero) == "" {
		return validacion("el número es obligatorio")
	}
	return nil
}

func pagadoEn(p dto.PagoRequest, now time.Time) time.Time {
	if p.PagadoEn != nil {
		return p.PagadoEn.UTC()
	}
	return now
}

func fechaDocumento(f *time.Time, now time.Time) time.Time {
	if f != nil {
		return f.UTC()
	}
	return now
}

func liquidacionToResponse(total decimal.Decimal, montos []decimal.Decimal) dto.LiquidacionResponse {
	l := ledger.Liquidar(total, montos)
	return dto.LiquidacionResponse{Pagado: l.Pagado, Deuda: l.Deuda, Estado: l.Estado}
}

func formatOpt(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
