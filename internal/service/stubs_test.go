package service_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"adminisgo/internal/cache"
	"adminisgo/internal/ledger"
	"adminisgo/internal/model"
	"adminisgo/internal/repository"
	"adminisgo/internal/service"
	"adminisgo/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── In-memory CajaRepository ──────────────────────────────────────────────────

type stubCajaRepo struct {
	mu          sync.Mutex
	registros   []model.RegistroCaja
	estado      *model.CajaEstado
	movimientos []model.MovimientoCaja
}

func newStubCajaRepo() *stubCajaRepo { return &stubCajaRepo{} }

func (r *stubCajaRepo) CreateRegistro(_ context.Context, _ *gorm.DB, reg *model.RegistroCaja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	reg.Secuencia = int64(len(r.registros) + 1)
	r.registros = append(r.registros, *reg)
	return nil
}

func (r *stubCajaRepo) FindRegistroByID(_ context.Context, id uuid.UUID) (*model.RegistroCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, reg := range r.registros {
		if reg.ID == id {
			c := reg
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubCajaRepo) ListRegistros(_ context.Context) ([]model.RegistroCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.RegistroCaja, len(r.registros))
	copy(out, r.registros)
	return out, nil
}

func (r *stubCajaRepo) CreateEstado(_ context.Context, _ *gorm.DB, e *model.CajaEstado) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.estado != nil {
		return gorm.ErrDuplicatedKey
	}
	c := *e
	r.estado = &c
	return nil
}

func (r *stubCajaRepo) DeleteEstado(_ context.Context, _ *gorm.DB, aperturaID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.estado == nil || r.estado.AperturaID != aperturaID {
		return false, nil
	}
	r.estado = nil
	return true, nil
}

func (r *stubCajaRepo) CreateMovimiento(_ context.Context, m *model.MovimientoCaja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movimientos = append(r.movimientos, *m)
	return nil
}

func (r *stubCajaRepo) ListMovimientos(_ context.Context, aperturaID uuid.UUID) ([]model.MovimientoCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MovimientoCaja
	for _, m := range r.movimientos {
		if m.AperturaID == aperturaID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *stubCajaRepo) DB() *gorm.DB { return nil }

var _ repository.CajaRepository = (*stubCajaRepo)(nil)

// ── In-memory ProductoRepository ──────────────────────────────────────────────

type stubProductoRepo struct {
	mu        sync.Mutex
	productos map[uuid.UUID]*model.Producto
	failDelta map[uuid.UUID]error
}

func newStubProductoRepo() *stubProductoRepo {
	return &stubProductoRepo{
		productos: make(map[uuid.UUID]*model.Producto),
		failDelta: make(map[uuid.UUID]error),
	}
}

func (r *stubProductoRepo) Create(_ context.Context, p *model.Producto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.productos {
		if existing.CodigoBarras == p.CodigoBarras {
			return gorm.ErrDuplicatedKey
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	c := *p
	r.productos[p.ID] = &c
	return nil
}

func (r *stubProductoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Producto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.productos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *p
	return &c, nil
}

func (r *stubProductoRepo) FindByBarcode(_ context.Context, barcode string) (*model.Producto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.productos {
		if p.CodigoBarras == barcode {
			c := *p
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubProductoRepo) List(_ context.Context, f repository.ProductoFilter) ([]model.Producto, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Producto
	for _, p := range r.productos {
		if f.Nombre != "" && !strings.Contains(strings.ToLower(p.Nombre), strings.ToLower(f.Nombre)) {
			continue
		}
		if f.SoloActivo && !p.Activo {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out, int64(len(out)), nil
}

func (r *stubProductoRepo) Update(_ context.Context, p *model.Producto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.productos[p.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	existing.Nombre = p.Nombre
	existing.PrecioVenta = p.PrecioVenta
	existing.StockMinimo = p.StockMinimo
	existing.Activo = p.Activo
	return nil
}

func (r *stubProductoRepo) AplicarDeltaStock(_ context.Context, _ *gorm.DB, id uuid.UUID, delta int) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failDelta[id]; err != nil {
		return 0, 0, err
	}
	p, ok := r.productos[id]
	if !ok {
		return 0, 0, gorm.ErrRecordNotFound
	}
	anterior := p.StockActual
	p.StockActual = anterior + delta
	if p.StockActual < 0 {
		p.StockActual = 0
	}
	return anterior, p.StockActual, nil
}

func (r *stubProductoRepo) DB() *gorm.DB { return nil }

func (r *stubProductoRepo) stock(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.productos[id].StockActual
}

var _ repository.ProductoRepository = (*stubProductoRepo)(nil)

func seedProducto(repo *stubProductoRepo, nombre string, stock, minimo int, precio string) *model.Producto {
	p := &model.Producto{
		ID:           uuid.New(),
		CodigoBarras: uuid.NewString()[:13],
		Nombre:       nombre,
		PrecioVenta:  decimal.RequireFromString(precio),
		StockActual:  stock,
		StockMinimo:  minimo,
		Activo:       true,
	}
	_ = repo.Create(context.Background(), p)
	return p
}

// ── In-memory MovimientoStockRepository ───────────────────────────────────────

type stubMovimientoStockRepo struct {
	mu          sync.Mutex
	movimientos []model.MovimientoStock
}

func (r *stubMovimientoStockRepo) Create(_ context.Context, _ *gorm.DB, m *model.MovimientoStock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.CreatedAt = time.Now()
	r.movimientos = append(r.movimientos, *m)
	return nil
}

func (r *stubMovimientoStockRepo) List(_ context.Context, f repository.MovimientoStockFilter) ([]model.MovimientoStock, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MovimientoStock
	for _, m := range r.movimientos {
		if f.ProductoID != nil && m.ProductoID != *f.ProductoID {
			continue
		}
		if f.Tipo != "" && m.Tipo != f.Tipo {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

var _ repository.MovimientoStockRepository = (*stubMovimientoStockRepo)(nil)

// ── In-memory VentaRepository ─────────────────────────────────────────────────

type stubVentaRepo struct {
	mu              sync.Mutex
	ventas          map[uuid.UUID]*model.Venta
	failCreateItems error
	failCreatePagos error
	borradas        []uuid.UUID
	// antesDeLeer runs before each FindForUpdate, outside the mutex.
	antesDeLeer func()
}

func newStubVentaRepo() *stubVentaRepo {
	return &stubVentaRepo{ventas: make(map[uuid.UUID]*model.Venta)}
}

func copiaVenta(v *model.Venta) *model.Venta {
	c := *v
	c.Items = append([]model.VentaItem(nil), v.Items...)
	c.Pagos = append([]model.VentaPago(nil), v.Pagos...)
	return &c
}

func (r *stubVentaRepo) Create(_ context.Context, _ *gorm.DB, v *model.Venta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *v
	c.Items, c.Pagos = nil, nil
	r.ventas[v.ID] = &c
	return nil
}

func (r *stubVentaRepo) CreateItems(_ context.Context, _ *gorm.DB, items []model.VentaItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreateItems != nil {
		return r.failCreateItems
	}
	for _, it := range items {
		v := r.ventas[it.VentaID]
		v.Items = append(v.Items, it)
	}
	return nil
}

func (r *stubVentaRepo) CreatePagos(_ context.Context, _ *gorm.DB, pagos []model.VentaPago) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreatePagos != nil && len(pagos) > 0 {
		return r.failCreatePagos
	}
	for _, p := range pagos {
		v := r.ventas[p.VentaID]
		v.Pagos = append(v.Pagos, p)
	}
	return nil
}

func (r *stubVentaRepo) DeleteItems(_ context.Context, _ *gorm.DB, ventaID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ventas[ventaID].Items = nil
	return nil
}

func (r *stubVentaRepo) DeletePagos(_ context.Context, _ *gorm.DB, ventaID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ventas[ventaID].Pagos = nil
	return nil
}

func (r *stubVentaRepo) DeletePago(_ context.Context, ventaID, pagoID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.ventas[ventaID]
	if !ok {
		return false, nil
	}
	for i, p := range v.Pagos {
		if p.ID == pagoID {
			v.Pagos = append(v.Pagos[:i], v.Pagos[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *stubVentaRepo) Delete(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ventas, id)
	r.borradas = append(r.borradas, id)
	return nil
}

func (r *stubVentaRepo) UpdateCabecera(_ context.Context, _ *gorm.DB, v *model.Venta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := r.ventas[v.ID]
	existing.Numero = v.Numero
	existing.Cliente = v.Cliente
	existing.Fecha = v.Fecha
	existing.Total = v.Total
	return nil
}

func (r *stubVentaRepo) MarcarEliminada(_ context.Context, _ *gorm.DB, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.ventas[id]
	if !ok || v.Eliminada {
		return false, nil
	}
	v.Eliminada = true
	v.EliminadaEn = &at
	return true, nil
}

// FindForUpdate has no lock to take: the conditional updates are what keep
// overlapping callers apart here.
func (r *stubVentaRepo) FindForUpdate(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*model.Venta, error) {
	if r.antesDeLeer != nil {
		r.antesDeLeer()
	}
	return r.FindByID(ctx, id)
}

func (r *stubVentaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Venta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.ventas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copiaVenta(v), nil
}

func (r *stubVentaRepo) ExistsNumero(_ context.Context, numero string, excluir *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.ventas {
		if v.Numero == numero && !v.Eliminada && (excluir == nil || v.ID != *excluir) {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubVentaRepo) CountDesde(_ context.Context, desde time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, v := range r.ventas {
		if !v.Eliminada && !v.Fecha.Before(desde) {
			n++
		}
	}
	return n, nil
}

func (r *stubVentaRepo) ListPagos(_ context.Context, desde time.Time, hasta *time.Time) ([]model.VentaPago, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.VentaPago
	for _, v := range r.ventas {
		if v.Eliminada {
			continue
		}
		for _, p := range v.Pagos {
			if p.PagadoEn.Before(desde) || (hasta != nil && !p.PagadoEn.Before(*hasta)) {
				continue
			}
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubVentaRepo) DB() *gorm.DB { return nil }

var _ repository.VentaRepository = (*stubVentaRepo)(nil)

// ── In-memory CompraRepository ────────────────────────────────────────────────

type stubCompraRepo struct {
	mu              sync.Mutex
	compras         map[uuid.UUID]*model.Compra
	recepciones     []model.RecepcionItem
	failCreateItems error
	borradas        []uuid.UUID
	antesDeLeer     func()
}

func newStubCompraRepo() *stubCompraRepo {
	return &stubCompraRepo{compras: make(map[uuid.UUID]*model.Compra)}
}

func (r *stubCompraRepo) Create(_ context.Context, _ *gorm.DB, c *model.Compra) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	cp.Items, cp.Pagos = nil, nil
	r.compras[c.ID] = &cp
	return nil
}

func (r *stubCompraRepo) CreateItems(_ context.Context, _ *gorm.DB, items []model.CompraItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreateItems != nil {
		return r.failCreateItems
	}
	for _, it := range items {
		c := r.compras[it.CompraID]
		c.Items = append(c.Items, it)
	}
	return nil
}

func (r *stubCompraRepo) CreatePagos(_ context.Context, _ *gorm.DB, pagos []model.CompraPago) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pagos {
		c := r.compras[p.CompraID]
		c.Pagos = append(c.Pagos, p)
	}
	return nil
}

func (r *stubCompraRepo) DeleteItems(_ context.Context, _ *gorm.DB, compraID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compras[compraID].Items = nil
	return nil
}

func (r *stubCompraRepo) DeletePagos(_ context.Context, _ *gorm.DB, compraID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compras[compraID].Pagos = nil
	return nil
}

func (r *stubCompraRepo) DeletePago(_ context.Context, compraID, pagoID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.compras[compraID]
	if !ok {
		return false, nil
	}
	for i, p := range c.Pagos {
		if p.ID == pagoID {
			c.Pagos = append(c.Pagos[:i], c.Pagos[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *stubCompraRepo) Delete(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.compras, id)
	r.borradas = append(r.borradas, id)
	return nil
}

func (r *stubCompraRepo) UpdateCabecera(_ context.Context, _ *gorm.DB, c *model.Compra) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := r.compras[c.ID]
	existing.Numero = c.Numero
	existing.Proveedor = c.Proveedor
	existing.Fecha = c.Fecha
	existing.Total = c.Total
	return nil
}

func (r *stubCompraRepo) MarcarEliminada(_ context.Context, _ *gorm.DB, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.compras[id]
	if !ok || c.Eliminada {
		return false, nil
	}
	c.Eliminada = true
	c.EliminadaEn = &at
	return true, nil
}

func (r *stubCompraRepo) CreateRecepcion(_ context.Context, _ *gorm.DB, rec *model.RecepcionItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recepciones = append(r.recepciones, *rec)
	return nil
}

func (r *stubCompraRepo) UpdateCantidadRecibida(_ context.Context, _ *gorm.DB, itemID uuid.UUID, cantidad int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.compras {
		for i := range c.Items {
			if c.Items[i].ID == itemID {
				c.Items[i].CantidadRecibida = cantidad
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubCompraRepo) AvanzarRecepcion(_ context.Context, _ *gorm.DB, leida *model.Compra, estado string, fecha time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.compras[leida.ID]
	if !ok || c.Eliminada || c.Estado != leida.Estado || c.Estado == model.CompraRecibida {
		return false, nil
	}
	mismaFecha := (c.FechaRecepcion == nil && leida.FechaRecepcion == nil) ||
		(c.FechaRecepcion != nil && leida.FechaRecepcion != nil && c.FechaRecepcion.Equal(*leida.FechaRecepcion))
	if !mismaFecha {
		return false, nil
	}
	c.Estado = estado
	c.FechaRecepcion = &fecha
	return true, nil
}

func (r *stubCompraRepo) ListRecepciones(_ context.Context, compraID uuid.UUID) ([]model.RecepcionItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.RecepcionItem
	for _, rec := range r.recepciones {
		if rec.CompraID == compraID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *stubCompraRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Compra, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.compras[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	cp.Items = append([]model.CompraItem(nil), c.Items...)
	cp.Pagos = append([]model.CompraPago(nil), c.Pagos...)
	return &cp, nil
}

func (r *stubCompraRepo) FindForUpdate(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*model.Compra, error) {
	if r.antesDeLeer != nil {
		r.antesDeLeer()
	}
	return r.FindByID(ctx, id)
}

func (r *stubCompraRepo) ExistsNumero(_ context.Context, numero string, excluir *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.compras {
		if c.Numero == numero && !c.Eliminada && (excluir == nil || c.ID != *excluir) {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubCompraRepo) DB() *gorm.DB { return nil }

var _ repository.CompraRepository = (*stubCompraRepo)(nil)

// ── Collaborators ─────────────────────────────────────────────────────────────

type stubAlertas struct {
	mu       sync.Mutex
	enviadas []worker.StockBajoPayload
}

func (a *stubAlertas) EnqueueStockBajo(_ context.Context, p worker.StockBajoPayload) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enviadas = append(a.enviadas, p)
	return nil
}

func (a *stubAlertas) AlertasStockBajo(_ context.Context) ([]worker.StockBajoPayload, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]worker.StockBajoPayload(nil), a.enviadas...), nil
}

var _ service.AlertasStock = (*stubAlertas)(nil)

type stubLimite struct{ res service.ResultadoLimite }

func (l stubLimite) Verificar(_ context.Context) (service.ResultadoLimite, error) { return l.res, nil }

// memTotalesCache is a TotalesCache with the same version semantics as the
// redis implementation.
type memTotalesCache struct {
	mu          sync.Mutex
	apertura    uuid.UUID
	totales     *ledger.Totales
	version     int64
	hits        int
	invalidados int
}

func (c *memTotalesCache) Get(_ context.Context, aperturaID uuid.UUID) (*ledger.Totales, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.totales == nil || c.apertura != aperturaID {
		return nil, false, nil
	}
	c.hits++
	t := *c.totales
	return &t, true, nil
}

func (c *memTotalesCache) Version(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version, nil
}

func (c *memTotalesCache) Set(_ context.Context, aperturaID uuid.UUID, version int64, t ledger.Totales, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version != c.version {
		return nil
	}
	c.apertura = aperturaID
	c.totales = &t
	return nil
}

func (c *memTotalesCache) Invalidar(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	c.totales = nil
	c.invalidados++
	return nil
}

var _ cache.TotalesCache = (*memTotalesCache)(nil)

// ── Fixture ───────────────────────────────────────────────────────────────────

type fixture struct {
	cajaRepo     *stubCajaRepo
	productoRepo *stubProductoRepo
	movStockRepo *stubMovimientoStockRepo
	ventaRepo    *stubVentaRepo
	compraRepo   *stubCompraRepo
	alertas      *stubAlertas
	cache        *memTotalesCache
	caja         service.CajaService
	inventario   service.InventarioService
	ventas       service.VentaService
	compras      service.CompraService
	productos    service.ProductoService
}

func newFixture() *fixture {
	f := &fixture{
		cajaRepo:     newStubCajaRepo(),
		productoRepo: newStubProductoRepo(),
		movStockRepo: &stubMovimientoStockRepo{},
		ventaRepo:    newStubVentaRepo(),
		compraRepo:   newStubCompraRepo(),
		alertas:      &stubAlertas{},
		cache:        &memTotalesCache{},
	}
	f.inventario = service.NewInventarioService(f.productoRepo, f.movStockRepo, f.alertas)
	f.caja = service.NewCajaService(f.cajaRepo, f.ventaRepo, f.cache, time.Minute)
	f.ventas = service.NewVentaService(f.ventaRepo, f.productoRepo, f.inventario, nil, f.cache)
	f.compras = service.NewCompraService(f.compraRepo, f.productoRepo, f.inventario)
	f.productos = service.NewProductoService(f.productoRepo)
	return f
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }
