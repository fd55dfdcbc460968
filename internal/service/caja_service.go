package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

// CajaService derives register sessions from the append-only ledger.
type CajaService interface {
	Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error)
	// SesionActual returns ErrSinSesion when the register is closed.
	SesionActual(ctx context.Context) (*ledger.Sesion, error)
	Activa(ctx context.Context) (*dto.SesionCajaResponse, error)
	TotalesApertura(ctx context.Context) (ledger.Totales, error)
	TotalesCorrientes(ctx context.Context) (*dto.TotalesCajaResponse, error)
	Cerrar(ctx context.Context, usuarioID uuid.UUID, req dto.CerrarCajaRequest) (*dto.CierreCajaResponse, error)
	RegistrarMovimiento(ctx context.Context, usuarioID uuid.UUID, req dto.MovimientoCajaRequest) (*dto.MovimientoCajaResponse, error)
	Corregir(ctx context.Context, usuarioID, registroID uuid.UUID, req dto.CorreccionCajaRequest) (*dto.RegistroCajaResponse, error)
	Historial(ctx context.Context, filter dto.HistorialCajaFilter) (*dto.HistorialCajaResponse, error)
}

type cajaService struct {
	repo      repository.CajaRepository
	ventaRepo repository.VentaRepository
	cache     cache.TotalesCache
	cacheTTL  time.Duration
	now       func() time.Time
}

// NewCajaService wires the session resolver. A nil cache disables caching.
func NewCajaService(
	repo repository.CajaRepository,
	ventaRepo repository.VentaRepository,
	totales cache.TotalesCache,
	cacheTTL time.Duration,
) CajaService {
	if totales == nil {
		totales = cache.NoopTotalesCache{}
	}
	return &cajaService{
		repo:      repo,
		ventaRepo: ventaRepo,
		cache:     totales,
		cacheTTL:  cacheTTL,
		now:       time.Now,
	}
}

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error) {
	montos := req.Totales()
	if montos.Negativo() {
		return nil, validacion("los montos de apertura no pueden ser negativos")
	}

	regs, err := s.repo.ListRegistros(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := ledger.ResolverSesion(regs); ok {
		return nil, fmt.Errorf("%w: ya existe una caja abierta", ErrConflicto)
	}

	apertura := model.RegistroCaja{
		ID:        uuid.New(),
		Tipo:      model.RegistroApertura,
		Fecha:     ledger.FechaPosterior(ledger.UltimaFecha(regs), s.now().UTC()),
		UsuarioID: usuarioID,
		Efectivo:  montos.Efectivo,
		Digital:   montos.Digital,
		Credito:   montos.Credito,
		Otro:      montos.Otro,
		Nota:      req.Nota,
	}

	// The state row is the storage-level guard: of two concurrent aperturas
	// only one inserts it.
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateEstado(ctx, tx, &model.CajaEstado{
			ID:         model.CajaEstadoID,
			AperturaID: apertura.ID,
			AbiertaEn:  apertura.Fecha,
		}); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: ya existe una caja abierta", ErrConflicto)
			}
			return err
		}
		if err := s.repo.CreateRegistro(ctx, tx, &apertura); err != nil {
			if tx == nil {
				if _, derr := s.repo.DeleteEstado(ctx, nil, apertura.ID); derr != nil {
					log.Error().Err(derr).Str("apertura_id", apertura.ID.String()).Msg("caja: compensación de estado fallida")
				}
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidar(ctx)

	log.Info().Str("apertura_id", apertura.ID.String()).Str("usuario_id", usuarioID.String()).Msg("caja abierta")
	resp := sesionToResponse(ledger.Sesion{Apertura: apertura, Inicial: montos})
	return &resp, nil
}

// ── Session resolution ────────────────────────────────────────────────────────

func (s *cajaService) SesionActual(ctx context.Context) (*ledger.Sesion, error) {
	regs, err := s.repo.ListRegistros(ctx)
	if err != nil {
		return nil, err
	}
	ses, ok := ledger.ResolverSesion(regs)
	if !ok {
		return nil, ErrSinSesion
	}
	return &ses, nil
}

func (s *cajaService) Activa(ctx context.Context) (*dto.SesionCajaResponse, error) {
	ses, err := s.SesionActual(ctx)
	if err != nil {
		return nil, err
	}
	resp := sesionToResponse(*ses)
	return &resp, nil
}

func (s *cajaService) TotalesApertura(ctx context.Context) (ledger.Totales, error) {
	ses, err := s.SesionActual(ctx)
	if err != nil {
		return ledger.Totales{}, err
	}
	return ses.Inicial, nil
}

// TotalesCorrientes serves the cached projection when it belongs to the
// active apertura; otherwise it replays the ledger and refreshes the cache.
// Cache failures only cost a recomputation.
func (s *cajaService) TotalesCorrientes(ctx context.Context) (*dto.TotalesCajaResponse, error) {
	ses, err := s.SesionActual(ctx)
	if err != nil {
		return nil, err
	}

	corrientes, ok, err := s.cache.Get(ctx, ses.Apertura.ID)
	if err != nil {
		log.Warn().Err(err).Msg("caja: cache de totales no disponible")
	}
	if ok {
		return totalesToResponse(*ses, *corrientes), nil
	}

	version, verr := s.cache.Version(ctx)
	t, err := s.calcularTotales(ctx, *ses)
	if err != nil {
		return nil, err
	}
	if verr == nil {
		if err := s.cache.Set(ctx, ses.Apertura.ID, version, t, s.cacheTTL); err != nil {
			log.Warn().Err(err).Msg("caja: no se pudo guardar el cache de totales")
		}
	}
	return totalesToResponse(*ses, t), nil
}

// calcularTotales replays the session: opening amounts, payments of
// non-deleted sales made inside the session and manual movements.
func (s *cajaService) calcularTotales(ctx context.Context, ses ledger.Sesion) (ledger.Totales, error) {
	var hasta *time.Time
	if ses.Cierre != nil {
		hasta = &ses.Cierre.Fecha
	}
	pagos, err := s.ventaRepo.ListPagos(ctx, ses.Apertura.Fecha, hasta)
	if err != nil {
		return ledger.Totales{}, err
	}
	movs, err := s.repo.ListMovimientos(ctx, ses.Apertura.ID)
	if err != nil {
		return ledger.Totales{}, err
	}

	t := ses.Inicial
	for _, p := range pagos {
		t = t.Sumar(p.Metodo, p.Monto)
	}
	for _, m := range movs {
		t = t.Sumar(m.MetodoPago, m.Monto)
	}
	return t, nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────

func (s *cajaService) Cerrar(ctx context.Context, usuarioID uuid.UUID, req dto.CerrarCajaRequest) (*dto.CierreCajaResponse, error) {
	ses, err := s.SesionActual(ctx)
	if err != nil {
		return nil, err
	}

	esperado, err := s.calcularTotales(ctx, *ses)
	if err != nil {
		return nil, err
	}
	if esperado.Negativo() {
		return nil, fmt.Errorf("%w: los totales de la sesión son negativos, corregir antes de cerrar", ErrConflicto)
	}

	resp := &dto.CierreCajaResponse{
		AperturaID: ses.Apertura.ID.String(),
		Esperado:   esperado,
	}

	// Blind count: the deviation is only computed once the declaration is in.
	if req.Declaracion != nil {
		declarado := req.Declaracion.Totales()
		if declarado.Negativo() {
			return nil, validacion("la declaración no puede tener montos negativos")
		}
		desvio := calcularDesvio(esperado.Total(), declarado.Total())
		if desvio.Clasificacion == DesvioCritico && (req.Observaciones == nil || strings.TrimSpace(*req.Observaciones) == "") {
			return nil, validacion("desvío crítico: se requieren observaciones")
		}
		resp.Declarado = &declarado
		resp.Desvio = &desvio
	}

	cierre := model.RegistroCaja{
		ID:        uuid.New(),
		Tipo:      model.RegistroCierre,
		Fecha:     ledger.FechaPosterior(ses.Apertura.Fecha, s.now().UTC()),
		UsuarioID: usuarioID,
		Efectivo:  esperado.Efectivo,
		Digital:   esperado.Digital,
		Credito:   esperado.Credito,
		Otro:      esperado.Otro,
		Nota:      req.Observaciones,
	}

	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		// Only the close that removes the state row may write the cierre.
		ok, err := s.repo.DeleteEstado(ctx, tx, ses.Apertura.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSinSesion
		}
		return s.repo.CreateRegistro(ctx, tx, &cierre)
	})
	if err != nil {
		return nil, err
	}
	s.invalidar(ctx)

	resp.CierreID = cierre.ID.String()
	resp.CerradaEn = cierre.Fecha.Format(time.RFC3339)

	ev := log.Info().Str("apertura_id", resp.AperturaID).Str("total", esperado.Total().String())
	if resp.Desvio != nil {
		ev = ev.Str("desvio", resp.Desvio.Monto.String()).Str("clasificacion", resp.Desvio.Clasificacion)
	}
	ev.Msg("caja cerrada")
	return resp, nil
}

// Deviation classes of a blind count.
const (
	DesvioNormal      = "normal"
	DesvioAdvertencia = "advertencia"
	DesvioCritico     = "critico"
)

// calcularDesvio compares declared against expected.
// normal: |desvio| <= 1%, advertencia: <= 5%, critico: > 5%.
// With nothing expected any declared amount is critical.
func calcularDesvio(esperado, declarado decimal.Decimal) dto.DesvioResponse {
	monto := declarado.Sub(esperado)
	var pct decimal.Decimal
	if !esperado.IsZero() {
		pct = monto.Div(esperado).Mul(decimal.NewFromInt(100)).Round(2)
	} else if !monto.IsZero() {
		pct = decimal.NewFromInt(100)
	}
	return dto.DesvioResponse{Monto: monto, Porcentaje: pct, Clasificacion: clasificarDesvio(pct)}
}

func clasificarDesvio(pct decimal.Decimal) string {
	abs := pct.Abs()
	switch {
	case abs.LessThanOrEqual(decimal.NewFromInt(1)):
		return DesvioNormal
	case abs.LessThanOrEqual(decimal.NewFromInt(5)):
		return DesvioAdvertencia
	default:
		return DesvioCritico
	}
}

// ── RegistrarMovimiento ───────────────────────────────────────────────────────
// Ingreso / egreso manual. Movements are immutable.

func (s *cajaService) RegistrarMovimiento(ctx context.Context, usuarioID uuid.UUID, req dto.MovimientoCajaRequest) (*dto.MovimientoCajaResponse, error) {
	if !req.Monto.IsPositive() {
		return nil, validacion("el monto debe ser mayor a cero")
	}
	if req.Tipo != "ingreso_manual" && req.Tipo != "egreso_manual" {
		return nil, validacion("tipo de movimiento inválido: %s", req.Tipo)
	}

	ses, err := s.SesionActual(ctx)
	if err != nil {
		return nil, err
	}

	monto := req.Monto
	if req.Tipo == "egreso_manual" {
		actuales, err := s.calcularTotales(ctx, *ses)
		if err != nil {
			return nil, err
		}
		saldo := saldoCategoria(actuales, ledger.Categorizar(req.MetodoPago))
		if saldo.LessThan(monto) {
			return nil, validacion("el egreso supera el saldo de la categoría (%s)", saldo.StringFixed(2))
		}
		monto = monto.Neg()
	}

	mov := &model.MovimientoCaja{
		ID:          uuid.New(),
		AperturaID:  ses.Apertura.ID,
		Tipo:        req.Tipo,
		MetodoPago:  req.MetodoPago,
		Monto:       monto,
		Descripcion: req.Descripcion,
		UsuarioID:   usuarioID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.CreateMovimiento(ctx, mov); err != nil {
		return nil, err
	}
	s.invalidar(ctx)

	return &dto.MovimientoCajaResponse{
		ID:          mov.ID.String(),
		AperturaID:  mov.AperturaID.String(),
		Tipo:        mov.Tipo,
		MetodoPago:  mov.MetodoPago,
		Categoria:   ledger.Categorizar(mov.MetodoPago),
		Monto:       mov.Monto,
		Descripcion: mov.Descripcion,
		CreatedAt:   mov.CreatedAt.Format(time.RFC3339),
	}, nil
}

func saldoCategoria(t ledger.Totales, categoria string) decimal.Decimal {
	switch categoria {
	case ledger.CategoriaEfectivo:
		return t.Efectivo
	case ledger.CategoriaDigital:
		return t.Digital
	case ledger.CategoriaCredito:
		return t.Credito
	default:
		return t.Otro
	}
}

// ── Corregir ──────────────────────────────────────────────────────────────────
// Administrative correction of an apertura or cierre. The original entry is
// never touched; readers overlay the latest correccion on top of it.

func (s *cajaService) Corregir(ctx context.Context, usuarioID, registroID uuid.UUID, req dto.CorreccionCajaRequest) (*dto.RegistroCajaResponse, error) {
	montos := req.Totales()
	if montos.Negativo() {
		return nil, validacion("los montos corregidos no pueden ser negativos")
	}
	if strings.TrimSpace(req.Nota) == "" {
		return nil, validacion("la corrección requiere una nota")
	}

	original, err := s.repo.FindRegistroByID(ctx, registroID)
	if err != nil {
		return nil, traducir(err, "registro de caja")
	}
	if original.Tipo == model.RegistroCorreccion {
		return nil, validacion("una corrección no puede corregirse, corregir el registro original")
	}

	nota := req.Nota
	correccion := model.RegistroCaja{
		ID:        uuid.New(),
		Tipo:      model.RegistroCorreccion,
		Fecha:     s.now().UTC(),
		UsuarioID: usuarioID,
		Efectivo:  montos.Efectivo,
		Digital:   montos.Digital,
		Credito:   montos.Credito,
		Otro:      montos.Otro,
		Nota:      &nota,
		CorrigeID: &original.ID,
	}
	if err := s.repo.CreateRegistro(ctx, nil, &correccion); err != nil {
		return nil, err
	}
	s.invalidar(ctx)

	log.Info().
		Str("registro_id", original.ID.String()).
		Str("correccion_id", correccion.ID.String()).
		Str("usuario_id", usuarioID.String()).
		Msg("registro de caja corregido")
	resp := registroToResponse(correccion)
	return &resp, nil
}

// ── Historial ─────────────────────────────────────────────────────────────────

func (s *cajaService) Historial(ctx context.Context, filter dto.HistorialCajaFilter) (*dto.HistorialCajaResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}

	regs, err := s.repo.ListRegistros(ctx)
	if err != nil {
		return nil, err
	}
	sesiones := ledger.Sesiones(regs)

	data := make([]dto.SesionCajaResponse, 0, filter.Limit)
	desde := (filter.Page - 1) * filter.Limit
	for i := desde; i < len(sesiones) && i < desde+filter.Limit; i++ {
		r := sesionToResponse(sesiones[i])
		if c := sesiones[i].Cierre; c != nil {
			montos := ledger.MontosVigentes(*c, regs)
			r.Cierre = &montos
		}
		data = append(data, r)
	}
	return &dto.HistorialCajaResponse{
		Data:  data,
		Total: len(sesiones),
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *cajaService) invalidar(ctx context.Context) {
	if err := s.cache.Invalidar(ctx); err != nil {
		log.Warn().Err(err).Msg("caja: no se pudo invalidar el cache de totales")
	}
}

func sesionToResponse(ses ledger.Sesion) dto.SesionCajaResponse {
	r := dto.SesionCajaResponse{
		AperturaID: ses.Apertura.ID.String(),
		UsuarioID:  ses.Apertura.UsuarioID.String(),
		AbiertaEn:  ses.Apertura.Fecha.Format(time.RFC3339),
		Inicial:    ses.Inicial,
		Abierta:    ses.Abierta(),
	}
	if ses.Cierre != nil {
		t := ses.Cierre.Fecha.Format(time.RFC3339)
		r.CerradaEn = &t
	}
	return r
}

func totalesToResponse(ses ledger.Sesion, corrientes ledger.Totales) *dto.TotalesCajaResponse {
	return &dto.TotalesCajaResponse{
		AperturaID: ses.Apertura.ID.String(),
		Inicial:    ses.Inicial,
		Corrientes: corrientes,
		Total:      corrientes.Total(),
	}
}

func registroToResponse(r model.RegistroCaja) dto.RegistroCajaResponse {
	resp := dto.RegistroCajaResponse{
		ID:        r.ID.String(),
		Tipo:      r.Tipo,
		Fecha:     r.Fecha.Format(time.RFC3339),
		UsuarioID: r.UsuarioID.String(),
		Montos:    ledger.Totales{Efectivo: r.Efectivo, Digital: r.Digital, Credito: r.Credito, Otro: r.Otro},
		Nota:      r.Nota,
	}
	if r.CorrigeID != nil {
		id := r.CorrigeID.String()
		resp.CorrigeID = &id
	}
	return resp
}
