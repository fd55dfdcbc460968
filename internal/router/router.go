package router

import (
	"context"
	"time"

	"adminisgo/internal/cache"
	"adminisgo/internal/config"
	"adminisgo/internal/handler"
	"adminisgo/internal/infra"
	"adminisgo/internal/middleware"
	"adminisgo/internal/repository"
	"adminisgo/internal/service"
	"adminisgo/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Handlers groups everything the route table needs.
type Handlers struct {
	Caja       *handler.CajaHandler
	Ventas     *handler.VentasHandler
	Compras    *handler.ComprasHandler
	Productos  *handler.ProductosHandler
	Inventario *handler.InventarioHandler
	Health     gin.HandlerFunc
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, cacheCB *infra.CircuitBreaker) *gin.Engine {
	// ── Repositories ─────────────────────────────────────────────────────────
	cajaRepo := repository.NewCajaRepository(db)
	productoRepo := repository.NewProductoRepository(db)
	movimientoStockRepo := repository.NewMovimientoStockRepository(db)
	ventaRepo := repository.NewVentaRepository(db)
	compraRepo := repository.NewCompraRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	totales := cache.NewRedisTotalesCache(rdb, cacheCB)
	dispatcher := worker.NewDispatcher(rdb)
	limite := service.NewLimiteVentasMensual(ventaRepo, cfg.PlanMaxVentasMes)

	inventarioSvc := service.NewInventarioService(productoRepo, movimientoStockRepo, dispatcher)
	cajaSvc := service.NewCajaService(cajaRepo, ventaRepo, totales, cfg.TotalesCacheTTL())
	ventaSvc := service.NewVentaService(ventaRepo, productoRepo, inventarioSvc, limite, totales)
	compraSvc := service.NewCompraService(compraRepo, productoRepo, inventarioSvc)
	productoSvc := service.NewProductoService(productoRepo)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPorMinuto, time.Minute)
	limiter.StartPurge(ctx, 5*time.Minute)

	r := Engine(cfg, limiter, Handlers{
		Caja:       handler.NewCajaHandler(cajaSvc),
		Ventas:     handler.NewVentasHandler(ventaSvc),
		Compras:    handler.NewComprasHandler(compraSvc),
		Productos:  handler.NewProductosHandler(productoSvc),
		Inventario: handler.NewInventarioHandler(inventarioSvc),
		Health:     handler.Health(db, rdb, cacheCB),
	})

	// Swagger UI outside production only.
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	return r
}

// Engine builds the middleware chain and the route table. limiter may be nil.
func Engine(cfg *config.Config, limiter *middleware.RateLimiter, h Handlers) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.Origins()))
	r.Use(middleware.ErrorHandler())
	if limiter != nil {
		r.Use(limiter.Middleware())
	}

	if h.Health != nil {
		r.GET("/health", h.Health)
	}

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	admin := middleware.RequireRole(middleware.RolAdministrador)

	caja := v1.Group("/caja")
	{
		caja.POST("/abrir", h.Caja.Abrir)
		caja.GET("/activa", h.Caja.Activa)
		caja.GET("/totales", h.Caja.Totales)
		caja.POST("/cerrar", h.Caja.Cerrar)
		caja.POST("/movimiento", h.Caja.RegistrarMovimiento)
		caja.GET("/historial", h.Caja.Historial)
		caja.POST("/registros/:id/correccion", admin, h.Caja.Corregir)
	}

	ventas := v1.Group("/ventas")
	{
		ventas.POST("", h.Ventas.Crear)
		ventas.GET("/:id", h.Ventas.Obtener)
		ventas.PUT("/:id", h.Ventas.Editar)
		ventas.DELETE("/:id", h.Ventas.Eliminar)
		ventas.POST("/:id/pagos", h.Ventas.AgregarPago)
		ventas.DELETE("/:id/pagos/:pagoId", h.Ventas.EliminarPago)
	}

	compras := v1.Group("/compras")
	{
		compras.POST("", h.Compras.Crear)
		compras.GET("/:id", h.Compras.Obtener)
		compras.PUT("/:id", h.Compras.Editar)
		compras.DELETE("/:id", h.Compras.Eliminar)
		compras.POST("/:id/pagos", h.Compras.AgregarPago)
		compras.DELETE("/:id/pagos/:pagoId", h.Compras.EliminarPago)
		compras.POST("/:id/recepcion", h.Compras.Recibir)
	}

	productos := v1.Group("/productos")
	{
		productos.GET("", h.Productos.Listar)
		productos.GET("/:id", h.Productos.ObtenerPorID)
		productos.GET("/:id/movimientos", h.Inventario.ListarMovimientos)
		productos.POST("", admin, h.Productos.Crear)
		productos.PUT("/:id", admin, h.Productos.Actualizar)
		productos.DELETE("/:id", admin, h.Productos.Desactivar)
	}

	v1.GET("/inventario/alertas", h.Inventario.ObtenerAlertas)

	return r
}
