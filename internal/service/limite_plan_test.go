package service_test

import (
	"context"
	"testing"
	"time"

	"adminisgo/internal/model"
	"adminisgo/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiteVentasMensual(t *testing.T) {
	ctx := context.Background()
	repo := newStubVentaRepo()

	limite := service.NewLimiteVentasMensual(repo, 2)
	res, err := limite.Verificar(ctx)
	require.NoError(t, err)
	assert.True(t, res.Permitido)

	// Sales from a previous year do not count.
	require.NoError(t, repo.Create(ctx, nil, &model.Venta{ID: uuid.New(), Numero: "V-0", Fecha: time.Now().AddDate(-1, 0, 0)}))
	require.NoError(t, repo.Create(ctx, nil, &model.Venta{ID: uuid.New(), Numero: "V-1", Fecha: time.Now()}))
	res, err = limite.Verificar(ctx)
	require.NoError(t, err)
	assert.True(t, res.Permitido)

	require.NoError(t, repo.Create(ctx, nil, &model.Venta{ID: uuid.New(), Numero: "V-2", Fecha: time.Now()}))
	res, err = limite.Verificar(ctx)
	require.NoError(t, err)
	assert.False(t, res.Permitido)
	assert.Contains(t, res.Motivo, "2 ventas")
}

func TestLimiteVentasMensual_SinLimite(t *testing.T) {
	repo := newStubVentaRepo()
	require.NoError(t, repo.Create(context.Background(), nil, &model.Venta{ID: uuid.New(), Numero: "V-1", Fecha: time.Now()}))

	res, err := service.NewLimiteVentasMensual(repo, 0).Verificar(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Permitido)
}
