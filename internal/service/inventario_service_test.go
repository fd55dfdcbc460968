package service_test

import (
	"context"
	"testing"

	"adminisgo/internal/dto"
	"adminisgo/internal/model"
	"adminisgo/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAplicarDelta_RegistraMovimiento(t *testing.T) {
	f := newFixture()
	p := seedProducto(f.productoRepo, "Galletitas", 10, 2, "5")
	ref := uuid.New()

	anterior, nuevo, err := f.inventario.AplicarDelta(context.Background(), nil, p.ID, -4, model.StockVenta, &ref)
	require.NoError(t, err)

	assert.Equal(t, 10, anterior)
	assert.Equal(t, 6, nuevo)
	require.Len(t, f.movStockRepo.movimientos, 1)
	assert.Equal(t, ref, *f.movStockRepo.movimientos[0].ReferenciaID)
	assert.Empty(t, f.alertas.enviadas)
}

func TestAplicarDelta_ProductoInexistente(t *testing.T) {
	f := newFixture()
	_, _, err := f.inventario.AplicarDelta(context.Background(), nil, uuid.New(), 1, model.StockRecepcion, nil)
	assert.ErrorIs(t, err, service.ErrNoEncontrado)
	assert.Empty(t, f.movStockRepo.movimientos)
}

func TestNotificar_AlertaAlLlegarAlMinimo(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := seedProducto(f.productoRepo, "Gaseosa", 5, 3, "5")

	cambios := service.NewCambiosStock()
	anterior, _, err := f.inventario.AplicarDelta(ctx, nil, p.ID, -2, model.StockVenta, nil)
	require.NoError(t, err)
	cambios.Registrar(p.ID, anterior)
	assert.Empty(t, f.alertas.enviadas, "nothing is sent before the work commits")

	f.inventario.Notificar(ctx, cambios)
	require.Len(t, f.alertas.enviadas, 1)
	assert.Equal(t, 3, f.alertas.enviadas[0].StockActual)
	assert.Equal(t, "Gaseosa", f.alertas.enviadas[0].Nombre)

	// Still at the minimum with no drop: nothing new.
	cambios = service.NewCambiosStock()
	anterior, _, err = f.inventario.AplicarDelta(ctx, nil, p.ID, 0, model.StockVenta, nil)
	require.NoError(t, err)
	cambios.Registrar(p.ID, anterior)
	f.inventario.Notificar(ctx, cambios)
	assert.Len(t, f.alertas.enviadas, 1)

	alertas, err := f.inventario.ObtenerAlertas(ctx)
	require.NoError(t, err)
	require.Len(t, alertas, 1)
	assert.Equal(t, p.ID.String(), alertas[0].ProductoID)
}

func TestNotificar_UnaAlertaPorProductoConStockActual(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := seedProducto(f.productoRepo, "Agua", 3, 3, "5")

	// Recovers and drops again inside the same unit of work.
	cambios := service.NewCambiosStock()
	for _, delta := range []int{+4, -7} {
		anterior, _, err := f.inventario.AplicarDelta(ctx, nil, p.ID, delta, model.StockVenta, nil)
		require.NoError(t, err)
		cambios.Registrar(p.ID, anterior)
	}
	f.inventario.Notificar(ctx, cambios)
	require.Len(t, f.alertas.enviadas, 1)
	assert.Equal(t, 0, f.alertas.enviadas[0].StockActual)

	cambios = service.NewCambiosStock()
	anterior, _, err := f.inventario.AplicarDelta(ctx, nil, p.ID, 10, model.StockRecepcion, nil)
	require.NoError(t, err)
	cambios.Registrar(p.ID, anterior)
	f.inventario.Notificar(ctx, cambios)
	require.Len(t, f.alertas.enviadas, 2)
	assert.Equal(t, 10, f.alertas.enviadas[1].StockActual, "recovery clears the alert downstream")
}

func TestNotificar_SinCambios(t *testing.T) {
	f := newFixture()
	f.inventario.Notificar(context.Background(), nil)
	f.inventario.Notificar(context.Background(), service.NewCambiosStock())
	assert.Empty(t, f.alertas.enviadas)
}

func TestListarMovimientos(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := seedProducto(f.productoRepo, "Yerba", 10, 0, "5")
	otro := seedProducto(f.productoRepo, "Mate", 10, 0, "5")

	_, _, err := f.inventario.AplicarDelta(ctx, nil, p.ID, -1, model.StockVenta, nil)
	require.NoError(t, err)
	_, _, err = f.inventario.AplicarDelta(ctx, nil, p.ID, 5, model.StockRecepcion, nil)
	require.NoError(t, err)
	_, _, err = f.inventario.AplicarDelta(ctx, nil, otro.ID, -1, model.StockVenta, nil)
	require.NoError(t, err)

	todos, err := f.inventario.ListarMovimientos(ctx, p.ID, dto.MovimientoStockFilter{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 2, todos.Total)

	ventas, err := f.inventario.ListarMovimientos(ctx, p.ID, dto.MovimientoStockFilter{Tipo: model.StockVenta, Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, ventas.Data, 1)
	assert.Equal(t, -1, ventas.Data[0].Cantidad)
	assert.Nil(t, ventas.Data[0].ReferenciaID)

	_, err = f.inventario.ListarMovimientos(ctx, uuid.New(), dto.MovimientoStockFilter{Page: 1, Limit: 20})
	assert.ErrorIs(t, err, service.ErrNoEncontrado)
}

func TestObtenerAlertas_SinCanal(t *testing.T) {
	inv := service.NewInventarioService(newStubProductoRepo(), &stubMovimientoStockRepo{}, nil)
	alertas, err := inv.ObtenerAlertas(context.Background())
	require.NoError(t, err)
	assert.Empty(t, alertas)
}
