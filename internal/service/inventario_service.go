package service

import (
	"context"
	"time"

	"adminisgo/internal/dto"
	"adminisgo/internal/model"
	"adminisgo/internal/repository"
	"adminisgo/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AlertasStock is the async side channel for low-stock notifications.
// *worker.Dispatcher implements it.
type AlertasStock interface {
	EnqueueStockBajo(ctx context.Context, payload worker.StockBajoPayload) error
	AlertasStockBajo(ctx context.Context) ([]worker.StockBajoPayload, error)
}

// CambiosStock remembers the stock each product had before a unit of work
// first touched it. Not safe for concurrent use.
type CambiosStock struct {
	orden   []uuid.UUID
	inicial map[uuid.UUID]int
}

func NewCambiosStock() *CambiosStock {
	return &CambiosStock{inicial: make(map[uuid.UUID]int)}
}

// Registrar keeps the first anterior seen for productoID.
func (c *CambiosStock) Registrar(productoID uuid.UUID, anterior int) {
	if _, ok := c.inicial[productoID]; ok {
		return
	}
	c.inicial[productoID] = anterior
	c.orden = append(c.orden, productoID)
}

// InventarioService adjusts product stock one line item at a time.
type InventarioService interface {
	// AplicarDelta adds delta to the product stock, floors it at zero and
	// records a MovimientoStock. tx may be nil outside a transaction.
	AplicarDelta(ctx context.Context, tx *gorm.DB, productoID uuid.UUID, delta int, tipo string, referenciaID *uuid.UUID) (anterior, nuevo int, err error)
	// Notificar enqueues at most one alert per product in cambios, based on
	// the stock as it is now. Call it only after the work has committed.
	Notificar(ctx context.Context, cambios *CambiosStock)
	ListarMovimientos(ctx context.Context, productoID uuid.UUID, filter dto.MovimientoStockFilter) (*dto.MovimientoStockListResponse, error)
	ObtenerAlertas(ctx context.Context) ([]dto.AlertaStockResponse, error)
}

type inventarioService struct {
	productoRepo   repository.ProductoRepository
	movimientoRepo repository.MovimientoStockRepository
	alertas        AlertasStock
	now            func() time.Time
}

// NewInventarioService wires the adjuster. alertas may be nil.
func NewInventarioService(
	productoRepo repository.ProductoRepository,
	movimientoRepo repository.MovimientoStockRepository,
	alertas AlertasStock,
) InventarioService {
	return &inventarioService{
		productoRepo:   productoRepo,
		movimientoRepo: movimientoRepo,
		alertas:        alertas,
		now:            time.Now,
	}
}

func (s *inventarioService) AplicarDelta(ctx context.Context, tx *gorm.DB, productoID uuid.UUID, delta int, tipo string, referenciaID *uuid.UUID) (int, int, error) {
	anterior, nuevo, err := s.productoRepo.AplicarDeltaStock(ctx, tx, productoID, delta)
	if err != nil {
		return 0, 0, traducir(err, "producto "+productoID.String())
	}

	mov := &model.MovimientoStock{
		ID:            uuid.New(),
		ProductoID:    productoID,
		Tipo:          tipo,
		Cantidad:      delta,
		StockAnterior: anterior,
		StockNuevo:    nuevo,
		ReferenciaID:  referenciaID,
	}
	if err := s.movimientoRepo.Create(ctx, tx, mov); err != nil {
		return anterior, nuevo, err
	}

	if anterior+delta < 0 {
		log.Warn().
			Str("producto_id", productoID.String()).
			Int("anterior", anterior).
			Int("delta", delta).
			Msg("inventario: stock insuficiente, ajustado a cero")
	}

	return anterior, nuevo, nil
}

// Notificar compares the committed stock against the stock before the work:
// falling to the minimum or recovering above it enqueues an alert. Failures
// are logged and never reach the caller.
func (s *inventarioService) Notificar(ctx context.Context, cambios *CambiosStock) {
	if s.alertas == nil || cambios == nil {
		return
	}
	for _, id := range cambios.orden {
		anterior := cambios.inicial[id]
		p, err := s.productoRepo.FindByID(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("producto_id", id.String()).Msg("inventario: no se pudo leer el producto para la alerta")
			continue
		}
		actual := p.StockActual
		bajo := actual <= p.StockMinimo && actual < anterior
		recupera := anterior <= p.StockMinimo && actual > p.StockMinimo
		if !bajo && !recupera {
			continue
		}
		payload := worker.StockBajoPayload{
			ProductoID:  id,
			Nombre:      p.Nombre,
			StockActual: actual,
			StockMinimo: p.StockMinimo,
			Fecha:       s.now().UTC(),
		}
		if err := s.alertas.EnqueueStockBajo(ctx, payload); err != nil {
			log.Warn().Err(err).Str("producto_id", id.String()).Msg("inventario: no se pudo encolar la alerta de stock")
		}
	}
}

func (s *inventarioService) ListarMovimientos(ctx context.Context, productoID uuid.UUID, filter dto.MovimientoStockFilter) (*dto.MovimientoStockListResponse, error) {
	if _, err := s.productoRepo.FindByID(ctx, productoID); err != nil {
		return nil, traducir(err, "producto")
	}
	movs, total, err := s.movimientoRepo.List(ctx, repository.MovimientoStockFilter{
		ProductoID: &productoID,
		Tipo:       filter.Tipo,
		Page:       filter.Page,
		Limit:      filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	data := make([]dto.MovimientoStockResponse, 0, len(movs))
	for _, m := range movs {
		r := dto.MovimientoStockResponse{
			ID:            m.ID.String(),
			ProductoID:    m.ProductoID.String(),
			Tipo:          m.Tipo,
			Cantidad:      m.Cantidad,
			StockAnterior: m.StockAnterior,
			StockNuevo:    m.StockNuevo,
			CreatedAt:     m.CreatedAt.Format(time.RFC3339),
		}
		if m.ReferenciaID != nil {
			ref := m.ReferenciaID.String()
			r.ReferenciaID = &ref
		}
		data = append(data, r)
	}
	return &dto.MovimientoStockListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *inventarioService) ObtenerAlertas(ctx context.Context) ([]dto.AlertaStockResponse, error) {
	if s.alertas == nil {
		return []dto.AlertaStockResponse{}, nil
	}
	alertas, err := s.alertas.AlertasStockBajo(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.AlertaStockResponse, 0, len(alertas))
	for _, a := range alertas {
		out = append(out, dto.AlertaStockResponse{
			ProductoID:  a.ProductoID.String(),
			Nombre:      a.Nombre,
			StockActual: a.StockActual,
			StockMinimo: a.StockMinimo,
			Fecha:       a.Fecha.Format(time.RFC3339),
		})
	}
	return out, nil
}
