package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 0, cfg.PlanMaxVentasMes)
	assert.Equal(t, 5*time.Minute, cfg.TotalesCacheTTL())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PLAN_MAX_VENTAS_MES", "150")
	t.Setenv("TOTALES_CACHE_TTL_SECONDS", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 150, cfg.PlanMaxVentasMes)
	assert.Equal(t, 30*time.Second, cfg.TotalesCacheTTL())
}

func TestValidate(t *testing.T) {
	cfg := &Config{Env: "production", JWTSecret: "corto", WorkerPoolSize: 2}
	assert.Error(t, cfg.Validate())

	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.Validate())

	cfg.WorkerPoolSize = 0
	assert.Error(t, cfg.Validate())
}

func TestOrigins(t *testing.T) {
	assert.Nil(t, (&Config{}).Origins())
	assert.Equal(t, []string{"https://a.example", "https://b.example"},
		(&Config{CORSOrigins: "https://a.example,https://b.example"}).Origins())
}
