// Package cache keeps a materialized view of the active session's running
// totals. The ledger replay stays the source of truth: entries are only a
// shortcut and every payment, movement, close or correction write drops them.
package cache

import (
	"context"
	"time"

	"adminisgo/internal/ledger"

	"github.com/google/uuid"
)

// TotalesCache stores the running totals of one apertura.
//
// Readers take Version before replaying the ledger and hand it back to Set;
// Set is a no-op when an invalidation happened in between, so a slow reader
// cannot overwrite the cache with totals computed before a newer write.
type TotalesCache interface {
	Get(ctx context.Context, aperturaID uuid.UUID) (*ledger.Totales, bool, error)
	Version(ctx context.Context) (int64, error)
	Set(ctx context.Context, aperturaID uuid.UUID, version int64, totales ledger.Totales, ttl time.Duration) error
	Invalidar(ctx context.Context) error
}

type NoopTotalesCache struct{}

func (NoopTotalesCache) Get(_ context.Context, _ uuid.UUID) (*ledger.Totales, bool, error) {
	return nil, false, nil
}

func (NoopTotalesCache) Version(_ context.Context) (int64, error) { return 0, nil }

func (NoopTotalesCache) Set(_ context.Context, _ uuid.UUID, _ int64, _ ledger.Totales, _ time.Duration) error {
	return nil
}

func (NoopTotalesCache) Invalidar(_ context.Context) error { return nil }
