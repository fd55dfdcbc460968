package service

import (
	"context"
	"fmt"
	"time"

	"adminisgo/internal/dto"
	"adminisgo/internal/ledger"
	"adminisgo/internal/model"
	"adminisgo/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CompraService interface {
	Crear(ctx context.Context, usuarioID uuid.UUID, req dto.CompraRequest) (*dto.CompraResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.CompraResponse, error)
	Editar(ctx context.Context, id uuid.UUID, req dto.CompraRequest) (*dto.CompraResponse, error)
	Eliminar(ctx context.Context, id uuid.UUID) error
	AgregarPago(ctx context.Context, id uuid.UUID, req dto.PagoRequest) (*dto.CompraResponse, error)
	EliminarPago(ctx context.Context, id, pagoID uuid.UUID) (*dto.CompraResponse, error)
	// Recibir registers received goods: each line is capped at its pending
	// quantity and moves stock in. A recibida order is terminal.
	Recibir(ctx context.Context, usuarioID, id uuid.UUID, req dto.RecepcionRequest) (*dto.CompraResponse, error)
}

type compraService struct {
	repo         repository.CompraRepository
	productoRepo repository.ProductoRepository
	inventario   InventarioService
	now          func() time.Time
}

func NewCompraService(
	repo repository.CompraRepository,
	productoRepo repository.ProductoRepository,
	inventario InventarioService,
) CompraService {
	return &compraService{
		repo:         repo,
		productoRepo: productoRepo,
		inventario:   inventario,
		now:          time.Now,
	}
}

// ── Crear ─────────────────────────────────────────────────────────────────────
// Same steps as a sale minus plan limits and stock: goods only move in when
// they are received.

func (s *compraService) Crear(ctx context.Context, usuarioID uuid.UUID, req dto.CompraRequest) (*dto.CompraResponse, error) {
	lineas, total, err := s.validar(ctx, req)
	if err != nil {
		return nil, err
	}
	if existe, err := s.repo.ExistsNumero(ctx, req.Numero, nil); err != nil {
		return nil, err
	} else if existe {
		return nil, fmt.Errorf("%w: ya existe una compra con número %s", ErrConflicto, req.Numero)
	}

	now := s.now().UTC()
	compra := model.Compra{
		ID:        uuid.New(),
		Numero:    req.Numero,
		UsuarioID: usuarioID,
		Proveedor: req.Proveedor,
		Total:     total,
		Estado:    model.CompraPendiente,
		Fecha:     fechaDocumento(req.Fecha, now),
	}

	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, &compra); err != nil {
			return traducir(err, "número de compra")
		}
		if err := s.escribirDetalle(ctx, tx, compra.ID, lineas, req.Pagos, now); err != nil {
			s.compensar(ctx, tx, compra.ID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("compra_id", compra.ID.String()).Str("numero", compra.Numero).Str("proveedor", compra.Proveedor).Msg("compra registrada")
	return s.Obtener(ctx, compra.ID)
}

func (s *compraService) validar(ctx context.Context, req dto.CompraRequest) ([]linea, decimal.Decimal, error) {
	if err := validarNumero(req.Numero); err != nil {
		return nil, decimal.Zero, err
	}
	if req.Proveedor == "" {
		return nil, decimal.Zero, validacion("el proveedor es obligatorio")
	}
	lineas, total, err := validarLineas(ctx, s.productoRepo, req.Items, false)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if err := validarPagos(req.Pagos); err != nil {
		return nil, decimal.Zero, err
	}
	return lineas, total, nil
}

func (s *compraService) escribirDetalle(ctx context.Context, tx *gorm.DB, compraID uuid.UUID, lineas []linea, pagos []dto.PagoRequest, now time.Time) error {
	items := make([]model.CompraItem, 0, len(lineas))
	for _, l := range lineas {
		items = append(items, model.CompraItem{
			ID:             uuid.New(),
			CompraID:       compraID,
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

	rows := make([]model.CompraPago, 0, len(pagos))
	for _, p := range pagos {
		rows = append(rows, model.CompraPago{
			ID:       uuid.New(),
			CompraID: compraID,
			Metodo:   p.Metodo,
			Monto:    p.Monto,
			PagadoEn: pagadoEn(p, now),
		})
	}
	return s.repo.CreatePagos(ctx, tx, rows)
}

func (s *compraService) compensar(ctx context.Context, tx *gorm.DB, compraID uuid.UUID) {
	if tx != nil {
		return
	}
	if err := s.repo.Delete(ctx, nil, compraID); err != nil {
		log.Error().Err(err).Str("compra_id", compraID.String()).Msg("compra: compensación fallida")
	}
}

// ajustarStock mirrors the sale rule: fatal inside a transaction, logged otherwise.
func (s *compraService) ajustarStock(ctx context.Context, tx *gorm.DB, cambios *CambiosStock, productoID uuid.UUID, delta int, tipo string, compraID uuid.UUID) error {
	ref := compraID
	anterior, _, err := s.inventario.AplicarDelta(ctx, tx, productoID, delta, tipo, &ref)
	if err != nil {
		if tx != nil {
			return err
		}
		log.Error().Err(err).
			Str("compra_id", compraID.String()).
			Str("producto_id", productoID.String()).
			Int("delta", delta).
			Msg("compra: ajuste de stock fallido")
		return nil
	}
	cambios.Registrar(productoID, anterior)
	return nil
}

// ── Obtener ───────────────────────────────────────────────────────────────────

func (s *compraService) Obtener(ctx context.Context, id uuid.UUID) (*dto.CompraResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, traducir(err, "compra")
	}
	recs, err := s.repo.ListRecepciones(ctx, id)
	if err != nil {
		return nil, err
	}
	return compraToResponse(c, recs), nil
}

// ── Editar ────────────────────────────────────────────────────────────────────
// Only pending orders can be edited: once goods arrived, the received
// quantities are facts the edit cannot rewrite.

func (s *compraService) Editar(ctx context.Context, id uuid.UUID, req dto.CompraRequest) (*dto.CompraResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, traducir(err, "compra")
	}
	if c.Eliminada {
		return nil, fmt.Errorf("%w: la compra está eliminada", ErrEstadoTerminal)
	}
	if c.Estado != model.CompraPendiente {
		return nil, fmt.Errorf("%w: la compra está %s", ErrEstadoTerminal, c.Estado)
	}

	lineas, total, err := s.validar(ctx, req)
	if err != nil {
		return nil, err
	}
	if existe, err := s.repo.ExistsNumero(ctx, req.Numero, &id); err != nil {
		return nil, err
	} else if existe {
		return nil, fmt.Errorf("%w: ya existe una compra con número %s", ErrConflicto, req.Numero)
	}

	now := s.now().UTC()
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		actual, err := s.repo.FindForUpdate(ctx, tx, c.ID)
		if err != nil {
			return traducir(err, "compra")
		}
		if actual.Eliminada {
			return fmt.Errorf("%w: la compra está eliminada", ErrEstadoTerminal)
		}
		if actual.Estado != model.CompraPendiente {
			return fmt.Errorf("%w: la compra está %s", ErrEstadoTerminal, actual.Estado)
		}
		if err := s.repo.DeleteItems(ctx, tx, c.ID); err != nil {
			return err
		}
		if err := s.repo.DeletePagos(ctx, tx, c.ID); err != nil {
			return err
		}
		if err := s.escribirDetalle(ctx, tx, c.ID, lineas, req.Pagos, now); err != nil {
			return err
		}
		c.Numero = req.Numero
		c.Proveedor = req.Proveedor
		c.Total = total
		if req.Fecha != nil {
			c.Fecha = req.Fecha.UTC()
		}
		return traducir(s.repo.UpdateCabecera(ctx, tx, c), "número de compra")
	})
	if err != nil {
		return nil, err
	}
	return s.Obtener(ctx, id)
}

// ── Eliminar ──────────────────────────────────────────────────────────────────
// Soft delete; whatever was already received leaves the stock again. The
// received quantities are read under the row lock.

func (s *compraService) Eliminar(ctx context.Context, id uuid.UUID) error {
	var numero string
	cambios := NewCambiosStock()
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		c, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return traducir(err, "compra")
		}
		if c.Eliminada {
			return fmt.Errorf("%w: la compra ya está eliminada", ErrEstadoTerminal)
		}
		ok, err := s.repo.MarcarEliminada(ctx, tx, c.ID, s.now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: la compra ya está eliminada", ErrEstadoTerminal)
		}
		for _, it := range c.Items {
			if it.CantidadRecibida == 0 {
				continue
			}
			if err := s.ajustarStock(ctx, tx, cambios, it.ProductoID, -it.CantidadRecibida, model.StockReversionRecepcion, c.ID); err != nil {
				return err
			}
		}
		numero = c.Numero
		return nil
	})
	if err != nil {
		return err
	}
	s.inventario.Notificar(ctx, cambios)
	log.Info().Str("compra_id", id.String()).Str("numero", numero).Msg("compra eliminada")
	return nil
}

// ── Pagos ─────────────────────────────────────────────────────────────────────

func (s *compraService) AgregarPago(ctx context.Context, id uuid.UUID, req dto.PagoRequest) (*dto.CompraResponse, error) {
	if err := validarPago(0, req); err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, traducir(err, "compra")
	}
	if c.Eliminada {
		return nil, fmt.Errorf("%w: la compra está eliminada", ErrEstadoTerminal)
	}
	pago := model.CompraPago{
		ID:       uuid.New(),
		CompraID: c.ID,
		Metodo:   req.Metodo,
		Monto:    req.Monto,
		PagadoEn: pagadoEn(req, s.now().UTC()),
	}
	if err := s.repo.CreatePagos(ctx, nil, []model.CompraPago{pago}); err != nil {
		return nil, err
	}
	return s.Obtener(ctx, id)
}

func (s *compraService) EliminarPago(ctx context.Context, id, pagoID uuid.UUID) (*dto.CompraResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, traducir(err, "compra")
	}
	if c.Eliminada {
		return nil, fmt.Errorf("%w: la compra está eliminada", ErrEstadoTerminal)
	}
	ok, err := s.repo.DeletePago(ctx, id, pagoID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: pago", ErrNoEncontrado)
	}
	return s.Obtener(ctx, id)
}

// ── Recibir ───────────────────────────────────────────────────────────────────

func (s *compraService) Recibir(ctx context.Context, usuarioID, id uuid.UUID, req dto.RecepcionRequest) (*dto.CompraResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, traducir(err, "compra")
	}
	if err := recepcionPermitida(c); err != nil {
		return nil, err
	}
	if _, err := cantidadesSolicitadas(c, req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var estado string
	cambios := NewCambiosStock()
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		// Pending quantities come from the locked row, not from the read above.
		actual, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return traducir(err, "compra")
		}
		if err := recepcionPermitida(actual); err != nil {
			return err
		}
		solicitado, err := cantidadesSolicitadas(actual, req)
		if err != nil {
			return err
		}

		recibir := make(map[uuid.UUID]int, len(actual.Items))
		for i := range actual.Items {
			it := &actual.Items[i]
			cant := solicitado[it.ID]
			if p := it.Pendiente(); cant > p {
				cant = p
			}
			if cant <= 0 {
				continue
			}
			recibir[it.ID] = cant
			it.CantidadRecibida += cant
		}
		if len(recibir) == 0 {
			return validacion("no hay cantidades pendientes para recibir")
		}

		// State first: of two overlapping receipts only one moves it.
		estado = estadoRecepcion(actual.Items)
		ok, err := s.repo.AvanzarRecepcion(ctx, tx, actual, estado, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: la compra cambió durante la recepción", ErrEstadoTerminal)
		}

		for _, it := range actual.Items {
			cant, ok := recibir[it.ID]
			if !ok {
				continue
			}
			if err := s.repo.CreateRecepcion(ctx, tx, &model.RecepcionItem{
				ID:           uuid.New(),
				CompraID:     actual.ID,
				CompraItemID: it.ID,
				ProductoID:   it.ProductoID,
				Cantidad:     cant,
				UsuarioID:    usuarioID,
				Fecha:        now,
			}); err != nil {
				return err
			}
			if err := s.repo.UpdateCantidadRecibida(ctx, tx, it.ID, it.CantidadRecibida); err != nil {
				return err
			}
			if err := s.ajustarStock(ctx, tx, cambios, it.ProductoID, cant, model.StockRecepcion, actual.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.inventario.Notificar(ctx, cambios)

	log.Info().Str("compra_id", id.String()).Str("estado", estado).Msg("recepción registrada")
	return s.Obtener(ctx, id)
}

func recepcionPermitida(c *model.Compra) error {
	if c.Eliminada {
		return fmt.Errorf("%w: la compra está eliminada", ErrEstadoTerminal)
	}
	if c.Estado == model.CompraRecibida {
		return fmt.Errorf("%w: la compra ya fue recibida", ErrEstadoTerminal)
	}
	return nil
}

// cantidadesSolicitadas maps item id to the quantity to receive. An empty
// request asks for everything still pending; repeated lines add up.
func cantidadesSolicitadas(c *model.Compra, req dto.RecepcionRequest) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(c.Items))
	if len(req.Items) == 0 {
		for _, it := range c.Items {
			out[it.ID] = it.Pendiente()
		}
		return out, nil
	}

	existentes := make(map[uuid.UUID]bool, len(c.Items))
	for _, it := range c.Items {
		existentes[it.ID] = true
	}
	for i, l := range req.Items {
		itemID, err := uuid.Parse(l.CompraItemID)
		if err != nil || !existentes[itemID] {
			return nil, validacion("línea %d: el ítem no pertenece a la compra", i+1)
		}
		if l.Cantidad <= 0 {
			return nil, validacion("línea %d: la cantidad debe ser mayor a cero", i+1)
		}
		out[itemID] += l.Cantidad
	}
	return out, nil
}

func estadoRecepcion(items []model.CompraItem) string {
	for _, it := range items {
		if it.Pendiente() > 0 {
			return model.CompraParcial
		}
	}
	return model.CompraRecibida
}

func compraToResponse(c *model.Compra, recs []model.RecepcionItem) *dto.CompraResponse {
	items := make([]dto.CompraItemResponse, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, dto.CompraItemResponse{
			ItemResponse: dto.ItemResponse{
				ID:             it.ID.String(),
				ProductoID:     it.ProductoID.String(),
				Cantidad:       it.Cantidad,
				PrecioUnitario: it.PrecioUnitario,
				DescuentoPct:   it.DescuentoPct,
				Subtotal:       it.Subtotal,
			},
			CantidadRecibida: it.CantidadRecibida,
		})
	}
	pagos := make([]dto.PagoResponse, 0, len(c.Pagos))
	montos := make([]decimal.Decimal, 0, len(c.Pagos))
	for _, p := range c.Pagos {
		pagos = append(pagos, dto.PagoResponse{
			ID:        p.ID.String(),
			Metodo:    p.Metodo,
			Categoria: ledger.Categorizar(p.Metodo),
			Monto:     p.Monto,
			PagadoEn:  p.PagadoEn.Format(time.RFC3339),
		})
		montos = append(montos, p.Monto)
	}
	recepciones := make([]dto.RecepcionResponse, 0, len(recs))
	for _, r := range recs {
		recepciones = append(recepciones, dto.RecepcionResponse{
			ID:           r.ID.String(),
			CompraItemID: r.CompraItemID.String(),
			ProductoID:   r.ProductoID.String(),
			Cantidad:     r.Cantidad,
			Fecha:        r.Fecha.Format(time.RFC3339),
		})
	}
	return &dto.CompraResponse{
		ID:             c.ID.String(),
		Numero:         c.Numero,
		UsuarioID:      c.UsuarioID.String(),
		Proveedor:      c.Proveedor,
		Fecha:          c.Fecha.Format(time.RFC3339),
		Total:          c.Total,
		Estado:         c.Estado,
		FechaRecepcion: formatOpt(c.FechaRecepcion),
		Items:          items,
		Pagos:          pagos,
		Recepciones:    recepciones,
		Liquidacion:    liquidacionToResponse(c.Total, montos),
		Eliminada:      c.Eliminada,
		EliminadaEn:    formatOpt(c.EliminadaEn),
	}
}
