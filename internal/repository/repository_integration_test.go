//go:build integration

package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"adminisgo/internal/model"
	"adminisgo/internal/repository"
	"adminisgo/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRepositories(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	productos := repository.NewProductoRepository(db)
	ventas := repository.NewVentaRepository(db)
	caja := repository.NewCajaRepository(db)
	compras := repository.NewCompraRepository(db)

	nuevoProducto := func(t *testing.T, stock int) *model.Producto {
		t.Helper()
		p := &model.Producto{
			ID:           uuid.New(),
			CodigoBarras: uuid.NewString()[:13],
			Nombre:       "Producto " + uuid.NewString()[:4],
			PrecioVenta:  decimal.NewFromInt(10),
			StockActual:  stock,
			Activo:       true,
		}
		require.NoError(t, productos.Create(ctx, p))
		return p
	}

	t.Run("delta de stock se ajusta a cero", func(t *testing.T) {
		p := nuevoProducto(t, 3)

		anterior, nuevo, err := productos.AplicarDeltaStock(ctx, nil, p.ID, -5)
		require.NoError(t, err)
		assert.Equal(t, 3, anterior)
		assert.Equal(t, 0, nuevo)

		got, err := productos.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.StockActual)
	})

	t.Run("deltas concurrentes no pierden actualizaciones", func(t *testing.T) {
		p := nuevoProducto(t, 100)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := productos.AplicarDeltaStock(ctx, nil, p.ID, -3)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := productos.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 40, got.StockActual)
	})

	t.Run("delta dentro de transaccion revertida", func(t *testing.T) {
		p := nuevoProducto(t, 10)

		_ = db.Transaction(func(tx *gorm.DB) error {
			_, _, err := productos.AplicarDeltaStock(ctx, tx, p.ID, -4)
			require.NoError(t, err)
			return gorm.ErrInvalidTransaction
		})

		got, err := productos.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, got.StockActual)
	})

	t.Run("numero de venta unico entre vigentes", func(t *testing.T) {
		v := &model.Venta{ID: uuid.New(), Numero: "V-UNICO", UsuarioID: uuid.New(), Total: decimal.NewFromInt(1), Fecha: time.Now()}
		require.NoError(t, ventas.Create(ctx, nil, v))

		dup := &model.Venta{ID: uuid.New(), Numero: "V-UNICO", UsuarioID: uuid.New(), Total: decimal.NewFromInt(1), Fecha: time.Now()}
		assert.ErrorIs(t, ventas.Create(ctx, nil, dup), gorm.ErrDuplicatedKey)

		ok, err := ventas.MarcarEliminada(ctx, nil, v.ID, time.Now())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, ventas.Create(ctx, nil, dup))

		ok, err = ventas.MarcarEliminada(ctx, nil, v.ID, time.Now())
		require.NoError(t, err)
		assert.False(t, ok, "already deleted")
	})

	t.Run("pagos de ventas eliminadas no cuentan", func(t *testing.T) {
		desde := time.Now().Add(-time.Second)
		v := &model.Venta{ID: uuid.New(), Numero: "V-PAGOS", UsuarioID: uuid.New(), Total: decimal.NewFromInt(50), Fecha: time.Now()}
		require.NoError(t, ventas.Create(ctx, nil, v))
		require.NoError(t, ventas.CreatePagos(ctx, nil, []model.VentaPago{{
			ID: uuid.New(), VentaID: v.ID, Metodo: "efectivo", Monto: decimal.NewFromInt(50), PagadoEn: time.Now(),
		}}))

		pagos, err := ventas.ListPagos(ctx, desde, nil)
		require.NoError(t, err)
		assert.Len(t, pagos, 1)

		_, err = ventas.MarcarEliminada(ctx, nil, v.ID, time.Now())
		require.NoError(t, err)
		pagos, err = ventas.ListPagos(ctx, desde, nil)
		require.NoError(t, err)
		assert.Empty(t, pagos)
	})

	t.Run("una sola caja abierta", func(t *testing.T) {
		primera := uuid.New()
		require.NoError(t, caja.CreateEstado(ctx, nil, &model.CajaEstado{ID: model.CajaEstadoID, AperturaID: primera, AbiertaEn: time.Now()}))

		err := caja.CreateEstado(ctx, nil, &model.CajaEstado{ID: model.CajaEstadoID, AperturaID: uuid.New(), AbiertaEn: time.Now()})
		assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

		ok, err := caja.DeleteEstado(ctx, nil, uuid.New())
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = caja.DeleteEstado(ctx, nil, primera)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = caja.DeleteEstado(ctx, nil, primera)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("recepcion avanza solo desde el estado leido", func(t *testing.T) {
		p := nuevoProducto(t, 0)
		c := &model.Compra{
			ID: uuid.New(), Numero: "C-CAS", UsuarioID: uuid.New(), Proveedor: "Norte",
			Total: decimal.NewFromInt(60), Estado: model.CompraPendiente, Fecha: time.Now(),
		}
		require.NoError(t, compras.Create(ctx, nil, c))
		require.NoError(t, compras.CreateItems(ctx, nil, []model.CompraItem{{
			ID: uuid.New(), CompraID: c.ID, ProductoID: p.ID, Cantidad: 10,
			PrecioUnitario: decimal.NewFromInt(6), Subtotal: decimal.NewFromInt(60),
		}}))

		leida, err := compras.FindForUpdate(ctx, nil, c.ID)
		require.NoError(t, err)
		require.Len(t, leida.Items, 1)

		ok, err := compras.AvanzarRecepcion(ctx, nil, leida, model.CompraParcial, time.Now())
		require.NoError(t, err)
		assert.True(t, ok)

		// Same stale read again: someone else already moved it.
		ok, err = compras.AvanzarRecepcion(ctx, nil, leida, model.CompraRecibida, time.Now())
		require.NoError(t, err)
		assert.False(t, ok)

		leida, err = compras.FindForUpdate(ctx, nil, c.ID)
		require.NoError(t, err)
		assert.Equal(t, model.CompraParcial, leida.Estado)
		ok, err = compras.AvanzarRecepcion(ctx, nil, leida, model.CompraRecibida, time.Now())
		require.NoError(t, err)
		assert.True(t, ok)

		leida, err = compras.FindForUpdate(ctx, nil, c.ID)
		require.NoError(t, err)
		ok, err = compras.AvanzarRecepcion(ctx, nil, leida, model.CompraRecibida, time.Now())
		require.NoError(t, err)
		assert.False(t, ok, "recibida is terminal")
	})

	t.Run("registros con la misma fecha salen en orden de insercion", func(t *testing.T) {
		at := time.Now().UTC().Truncate(time.Microsecond)
		cierre := &model.RegistroCaja{ID: uuid.New(), Tipo: model.RegistroCierre, Fecha: at, UsuarioID: uuid.New()}
		apertura := &model.RegistroCaja{ID: uuid.New(), Tipo: model.RegistroApertura, Fecha: at, UsuarioID: uuid.New()}
		require.NoError(t, caja.CreateRegistro(ctx, nil, cierre))
		require.NoError(t, caja.CreateRegistro(ctx, nil, apertura))
		assert.Greater(t, apertura.Secuencia, cierre.Secuencia)

		regs, err := caja.ListRegistros(ctx)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(regs), 2)
		assert.Equal(t, cierre.ID, regs[len(regs)-2].ID)
		assert.Equal(t, apertura.ID, regs[len(regs)-1].ID)
	})
}
