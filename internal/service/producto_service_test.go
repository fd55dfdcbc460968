package service_test

import (
	"context"
	"testing"

	"adminisgo/internal/dto"
	"adminisgo/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrearProducto(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	p, err := f.productos.Crear(ctx, dto.CrearProductoRequest{
		CodigoBarras: "7790001000011",
		Nombre:       "Yerba Mate 1kg",
		PrecioVenta:  d("3500"),
		StockActual:  4,
		StockMinimo:  5,
	})
	require.NoError(t, err)
	assert.True(t, p.Activo)
	assert.True(t, p.StockBajo)

	porBarcode, err := f.productos.ObtenerPorBarcode(ctx, "7790001000011")
	require.NoError(t, err)
	assert.Equal(t, p.ID, porBarcode.ID)

	_, err = f.productos.Crear(ctx, dto.CrearProductoRequest{CodigoBarras: "7790001000011", Nombre: "Otra", PrecioVenta: d("1")})
	assert.ErrorIs(t, err, service.ErrConflicto)
}

func TestCrearProducto_Validacion(t *testing.T) {
	f := newFixture()
	_, err := f.productos.Crear(context.Background(), dto.CrearProductoRequest{CodigoBarras: "1", Nombre: " ", PrecioVenta: d("1")})
	assert.ErrorIs(t, err, service.ErrValidacion)
	_, err = f.productos.Crear(context.Background(), dto.CrearProductoRequest{CodigoBarras: "1", Nombre: "X", PrecioVenta: d("-1")})
	assert.ErrorIs(t, err, service.ErrValidacion)
}

func TestActualizarYDesactivarProducto(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := seedProducto(f.productoRepo, "Arroz", 10, 2, "100")

	nombre := "Arroz largo fino"
	minimo := 12
	resp, err := f.productos.Actualizar(ctx, p.ID, dto.ActualizarProductoRequest{Nombre: &nombre, StockMinimo: &minimo})
	require.NoError(t, err)
	assert.Equal(t, nombre, resp.Nombre)
	assert.True(t, resp.StockBajo)

	negativo := -1
	_, err = f.productos.Actualizar(ctx, p.ID, dto.ActualizarProductoRequest{StockMinimo: &negativo})
	assert.ErrorIs(t, err, service.ErrValidacion)

	require.NoError(t, f.productos.Desactivar(ctx, p.ID))
	got, err := f.productos.ObtenerPorID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.Activo)

	assert.ErrorIs(t, f.productos.Desactivar(ctx, uuid.New()), service.ErrNoEncontrado)
}

func TestListarProductos(t *testing.T) {
	f := newFixture()
	seedProducto(f.productoRepo, "Yerba suave", 1, 0, "1")
	seedProducto(f.productoRepo, "Yerba compuesta", 1, 0, "1")
	seedProducto(f.productoRepo, "Azúcar", 1, 0, "1")

	list, err := f.productos.Listar(context.Background(), dto.ProductoFilter{Nombre: "yerba", Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, list.Total)
	assert.Equal(t, 2, list.TotalPages)
	assert.Equal(t, 1, list.Page)
}
