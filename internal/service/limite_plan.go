package service

import (
	"context"
	"fmt"
	"time"

	"adminisgo/internal/repository"
)

// ResultadoLimite is the answer of a plan-limit check.
type ResultadoLimite struct {
	Permitido bool
	Motivo    string
}

// LimitePlan decides whether the tenant may register one more sale.
type LimitePlan interface {
	Verificar(ctx context.Context) (ResultadoLimite, error)
}

// limiteVentasMensual counts non-deleted sales of the current calendar month.
type limiteVentasMensual struct {
	ventas repository.VentaRepository
	max    int
	now    func() time.Time
}

// NewLimiteVentasMensual returns a LimitePlan allowing max sales per month.
// max <= 0 means unlimited.
func NewLimiteVentasMensual(ventas repository.VentaRepository, max int) LimitePlan {
	return &limiteVentasMensual{ventas: ventas, max: max, now: time.Now}
}

func (l *limiteVentasMensual) Verificar(ctx context.Context) (ResultadoLimite, error) {
	if l.max <= 0 {
		return ResultadoLimite{Permitido: true}, nil
	}
	now := l.now()
	desde := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	n, err := l.ventas.CountDesde(ctx, desde)
	if err != nil {
		return ResultadoLimite{}, err
	}
	if n >= int64(l.max) {
		return ResultadoLimite{
			Motivo: fmt.Sprintf("el plan permite %d ventas por mes", l.max),
		}, nil
	}
	return ResultadoLimite{Permitido: true}, nil
}
