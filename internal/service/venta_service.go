package service

import (
	"context"
	"fmt"
	"time"

	"adminisgo/internal/cache"
	"adminisgo/internal/dto"
	"adminisgo/internal/ledger"
	"adminisgo/internal/model"
	"adminisgo/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type VentaService interface {
	Crear(ctx context.Context, usuarioID uuid.UUID, req dto.VentaRequest) (*dto.VentaResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error)
	Editar(ctx context.Context, id uuid.UUID, req dto.VentaRequest) (*dto.VentaResponse, error)
	Eliminar(ctx context.Context, id uuid.UUID) error
	AgregarPago(ctx context.Context, id uuid.UUID, req dto.PagoRequest) (*dto.VentaResponse, error)
	EliminarPago(ctx context.Context, id, pagoID uuid.UUID) (*dto.VentaResponse, error)
}

type ventaService struct {
	repo         repository.VentaRepository
	productoRepo repository.ProductoRepository
	inventario   InventarioService
	limite       LimitePlan
	totales      cache.TotalesCache
	now          func() time.Time
}

// NewVentaService wires the sale orchestrator. limite and totales may be nil.
func NewVentaService(
	repo repository.VentaRepository,
	productoRepo repository.ProductoRepository,
	inventario InventarioService,
	limite LimitePlan,
	totales cache.TotalesCache,
) VentaService {
	if totales == nil {
		totales = cache.NoopTotalesCache{}
	}
	return &ventaService{
		repo:         repo,
		productoRepo: productoRepo,
		inventario:   inventario,
		limite:       limite,
		totales:      totales,
		now:          time.Now,
	}
}

// ── Crear ─────────────────────────────────────────────────────────────────────
//   1. Validate header, items and pagos (nothing written yet)
//   2. Plan limit and numero uniqueness
//   3. BEGIN TX: header, items, stock deltas, pagos
//   4. COMMIT, then drop the cached session totals and send stock alerts
//
// Without a transactional DB a failed step deletes the header instead, and a
// failed stock delta is only logged.

func (s *ventaService) Crear(ctx context.Context, usuarioID uuid.UUID, req dto.VentaRequest) (*dto.VentaResponse, error) {
	if err := validarNumero(req.Numero); err != nil {
		return nil, err
	}
	lineas, total, err := validarLineas(ctx, s.productoRepo, req.Items, true)
	if err != nil {
		return nil, err
	}
	if err := validarPagos(req.Pagos); err != nil {
		return nil, err
	}

	if s.limite != nil {
		res, err := s.limite.Verificar(ctx)
		if err != nil {
			return nil, err
		}
		if !res.Permitido {
			return nil, fmt.Errorf("%w: %s", ErrLimitePlan, res.Motivo)
		}
	}

	if existe, err := s.repo.ExistsNumero(ctx, req.Numero, nil); err != nil {
		return nil, err
	} else if existe {
		return nil, fmt.Errorf("%w: ya existe una venta con número %s", ErrConflicto, req.Numero)
	}

	now := s.now().UTC()
	venta := model.Venta{
		ID:        uuid.New(),
		Numero:    req.Numero,
		UsuarioID: usuarioID,
		Cliente:   req.Cliente,
		Total:     total,
		Fecha:     fechaDocumento(req.Fecha, now),
	}

	cambios := NewCambiosStock()
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, &venta); err != nil {
			return traducir(err, "número de venta")
		}
		if err := s.escribirDetalle(ctx, tx, cambios, venta.ID, lineas, req.Pagos, now); err != nil {
			s.compensar(ctx, tx, venta.ID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(req.Pagos) > 0 {
		s.invalidar(ctx)
	}
	s.inventario.Notificar(ctx, cambios)

	log.Info().Str("venta_id", venta.ID.String()).Str("numero", venta.Numero).Str("total", total.String()).Msg("venta registrada")
	return s.Obtener(ctx, venta.ID)
}

// escribirDetalle inserts items, takes their stock and inserts payments.
func (s *ventaService) escribirDetalle(ctx context.Context, tx *gorm.DB, cambios *CambiosStock, ventaID uuid.UUID, lineas []linea, pagos []dto.PagoRequest, now time.Time) error {
	items := make([]model.VentaItem, 0, len(lineas))
	for _, l := range lineas {
		items = append(items, model.VentaItem{
			ID:             uuid.New(),
			VentaID:        ventaID,
			ProductoID:     l.productoID,
			Cantidad:       l.cantidad,
			PrecioUnitario: l.precioUnitario,
			DescuentoPct:   l.descuentoPct,
			Subtotal:       l.subtotal,
		})
	}
	if err := s.repo.CreateItems(ctx, tx, items); err != nil {
		return err
	}

	for _, it := range items {
		if err := s.ajustarStock(ctx, tx, cambios, it.ProductoID, -it.Cantidad, model.StockVenta, ventaID); err != nil {
			return err
		}
	}

	rows := make([]model.VentaPago, 0, len(pagos))
	for _, p := range pagos {
		rows = append(rows, model.VentaPago{
			ID:       uuid.New(),
			VentaID:  ventaID,
			Metodo:   p.Metodo,
			Monto:    p.Monto,
			PagadoEn: pagadoEn(p, now),
		})
	}
	return s.repo.CreatePagos(ctx, tx, rows)
}

// ajustarStock applies one delta. Inside a transaction a failure aborts it;
// without one the failure is logged and the sale goes on.
func (s *ventaService) ajustarStock(ctx context.Context, tx *gorm.DB, cambios *CambiosStock, productoID uuid.UUID, delta int, tipo string, ventaID uuid.UUID) error {
	ref := ventaID
	anterior, _, err := s.inventario.AplicarDelta(ctx, tx, productoID, delta, tipo, &ref)
	if err != nil {
		if tx != nil {
			return err
		}
		log.Error().Err(err).
			Str("venta_id", ventaID.String()).
			Str("producto_id", productoID.String()).
			Int("delta", delta).
			Msg("venta: ajuste de stock fallido")
		return nil
	}
	cambios.Registrar(productoID, anterior)
	return nil
}

// compensar undoes the header insert when there is no transaction to roll
// back. Its own failure is only logged.
func (s *ventaService) compensar(ctx context.Context, tx *gorm.DB, ventaID uuid.UUID) {
	if tx != nil {
		return
	}
	if err := s.repo.Delete(ctx, nil, ventaID); err != nil {
		log.Error().Err(err).Str("venta_id", ventaID.String()).Msg("venta: compensación fallida")
	}
}

// ── Obtener ───────────────────────────────────────────────────────────────────

func (s *ventaService) Obtener(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, traducir(err, "venta")
	}
	return ventaToResponse(v), nil
}

// ── Editar ────────────────────────────────────────────────────────────────────
// Gives back the stock of the old items, replaces items and pagos, takes the
// stock of the new items and rewrites the header. The old items are read
// again under the row lock so a concurrent edit or delete cannot be undone
// twice.

func (s *ventaService) Editar(ctx context.Context, id uuid.UUID, req dto.VentaRequest) (*dto.VentaResponse, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, traducir(err, "venta")
	}
	if v.Eliminada {
		return nil, fmt.Errorf("%w: la venta está eliminada", ErrEstadoTerminal)
	}

	if err := validarNumero(req.Numero); err != nil {
		return nil, err
	}
	lineas, total, err := validarLineas(ctx, s.productoRepo, req.Items, true)
	if err != nil {
		return nil, err
	}
	if err := validarPagos(req.Pagos); err != nil {
		return nil, err
	}
	if existe, err := s.repo.ExistsNumero(ctx, req.Numero, &id); err != nil {
		return nil, err
	} else if existe {
		return nil, fmt.Errorf("%w: ya existe una venta con número %s", ErrConflicto, req.Numero)
	}

	now := s.now().UTC()
	cambios := NewCambiosStock()
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		actual, err := s.repo.FindForUpdate(ctx, tx, v.ID)
		if err != nil {
			return traducir(err, "venta")
		}
		if actual.Eliminada {
			return fmt.Errorf("%w: la venta está eliminada", ErrEstadoTerminal)
		}
		for _, it := range actual.Items {
			if err := s.ajustarStock(ctx, tx, cambios, it.ProductoID, it.Cantidad, model.StockReversionVenta, actual.ID); err != nil {
				return err
			}
		}
		if err := s.repo.DeleteItems(ctx, tx, actual.ID); err != nil {
			return err
		}
		if err := s.repo.DeletePagos(ctx, tx, actual.ID); err != nil {
			return err
		}
		if err := s.escribirDetalle(ctx, tx, cambios, actual.ID, lineas, req.Pagos, now); err != nil {
			return err
		}
		actual.Numero = req.Numero
		actual.Cliente = req.Cliente
		actual.Total = total
		if req.Fecha != nil {
			actual.Fecha = req.Fecha.UTC()
		}
		return traducir(s.repo.UpdateCabecera(ctx, tx, actual), "número de venta")
	})
	if err != nil {
		return nil, err
	}
	s.invalidar(ctx)
	s.inventario.Notificar(ctx, cambios)
	return s.Obtener(ctx, id)
}

// ── Eliminar ──────────────────────────────────────────────────────────────────
// Soft delete, then the stock of every item goes back to the shelf. Only the
// caller whose conditional update flips the flag gives the stock back.

func (s *ventaService) Eliminar(ctx context.Context, id uuid.UUID) error {
	var numero string
	cambios := NewCambiosStock()
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		v, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return traducir(err, "venta")
		}
		if v.Eliminada {
			return fmt.Errorf("%w: la venta ya está eliminada", ErrEstadoTerminal)
		}
		ok, err := s.repo.MarcarEliminada(ctx, tx, v.ID, s.now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: la venta ya está eliminada", ErrEstadoTerminal)
		}
		for _, it := range v.Items {
			if err := s.ajustarStock(ctx, tx, cambios, it.ProductoID, it.Cantidad, model.StockReversionVenta, v.ID); err != nil {
				return err
			}
		}
		numero = v.Numero
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidar(ctx)
	s.inventario.Notificar(ctx, cambios)
	log.Info().Str("venta_id", id.String()).Str("numero", numero).Msg("venta eliminada")
	return nil
}

// ── Pagos ─────────────────────────────────────────────────────────────────────

func (s *ventaService) AgregarPago(ctx context.Context, id uuid.UUID, req dto.PagoRequest) (*dto.VentaResponse, error) {
	if err := validarPago(0, req); err != nil {
		return nil, err
	}
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, traducir(err, "venta")
	}
	if v.Eliminada {
		return nil, fmt.Errorf("%w: la venta está eliminada", ErrEstadoTerminal)
	}

	pago := model.VentaPago{
		ID:       uuid.New(),
		VentaID:  v.ID,
		Metodo:   req.Metodo,
		Monto:    req.Monto,
		PagadoEn: pagadoEn(req, s.now().UTC()),
	}
	if err := s.repo.CreatePagos(ctx, nil, []model.VentaPago{pago}); err != nil {
		return nil, err
	}
	s.invalidar(ctx)
	return s.Obtener(ctx, id)
}

func (s *ventaService) EliminarPago(ctx context.Context, id, pagoID uuid.UUID) (*dto.VentaResponse, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, traducir(err, "venta")
	}
	if v.Eliminada {
		return nil, fmt.Errorf("%w: la venta está eliminada", ErrEstadoTerminal)
	}
	ok, err := s.repo.DeletePago(ctx, id, pagoID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: pago", ErrNoEncontrado)
	}
	s.invalidar(ctx)
	return s.Obtener(ctx, id)
}

func (s *ventaService) invalidar(ctx context.Context) {
	if err := s.totales.Invalidar(ctx); err != nil {
		log.Warn().Err(err).Msg("venta: no se pudo invalidar el cache de totales")
	}
}

func ventaToResponse(v *model.Venta) *dto.VentaResponse {
	items := make([]dto.ItemResponse, 0, len(v.Items))
	for _, it := range v.Items {
		items = append(items, dto.ItemResponse{
			ID:             it.ID.String(),
			ProductoID:     it.ProductoID.String(),
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario,
			DescuentoPct:   it.DescuentoPct,
			Subtotal:       it.Subtotal,
		})
	}
	pagos := make([]dto.PagoResponse, 0, len(v.Pagos))
	montos := make([]decimal.Decimal, 0, len(v.Pagos))
	for _, p := range v.Pagos {
		pagos = append(pagos, dto.PagoResponse{
			ID:        p.ID.String(),
			Metodo:    p.Metodo,
			Categoria: ledger.Categorizar(p.Metodo),
			Monto:     p.Monto,
			PagadoEn:  p.PagadoEn.Format(time.RFC3339),
		})
		montos = append(montos, p.Monto)
	}
	return &dto.VentaResponse{
		ID:          v.ID.String(),
		Numero:      v.Numero,
		UsuarioID:   v.UsuarioID.String(),
		Cliente:     v.Cliente,
		Fecha:       v.Fecha.Format(time.RFC3339),
		Total:       v.Total,
		Items:       items,
		Pagos:       pagos,
		Liquidacion: liquidacionToResponse(v.Total, montos),
		Eliminada:   v.Eliminada,
		EliminadaEn: formatOpt(v.EliminadaEn),
	}
}
