package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"adminisgo/internal/infra"
	"adminisgo/internal/ledger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Only one session can be open at a time, so one key is enough; the apertura
// id stored alongside the totals rejects entries left over from a previous
// session.
const (
	KeyTotalesActivos = "caja:totales:activa"
	KeyTotalesVersion = "caja:totales:version"
)

type entradaTotales struct {
	AperturaID uuid.UUID      `json:"apertura_id"`
	Totales    ledger.Totales `json:"totales"`
}

type RedisTotalesCache struct {
	client *redis.Client
	cb     *infra.CircuitBreaker
}

// NewRedisTotalesCache wraps every redis call in cb so an unavailable redis
// degrades to recomputation instead of adding latency to each read.
func NewRedisTotalesCache(client *redis.Client, cb *infra.CircuitBreaker) *RedisTotalesCache {
	if cb == nil {
		cb = infra.NewCircuitBreaker(infra.DefaultCBConfig())
	}
	return &RedisTotalesCache{client: client, cb: cb}
}

func (c *RedisTotalesCache) Get(ctx context.Context, aperturaID uuid.UUID) (*ledger.Totales, bool, error) {
	var val string
	err := c.cb.Execute(func() error {
		var err error
		val, err = c.client.Get(ctx, KeyTotalesActivos).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	})
	if err != nil || val == "" {
		return nil, false, err
	}

	var e entradaTotales
	if err := json.Unmarshal([]byte(val), &e); err != nil {
		return nil, false, err
	}
	if e.AperturaID != aperturaID {
		return nil, false, nil
	}
	return &e.Totales, true, nil
}

func (c *RedisTotalesCache) Version(ctx context.Context) (int64, error) {
	var v int64
	err := c.cb.Execute(func() error {
		var err error
		v, err = c.client.Get(ctx, KeyTotalesVersion).Int64()
		if errors.Is(err, redis.Nil) {
			v = 0
			return nil
		}
		return err
	})
	return v, err
}

func (c *RedisTotalesCache) Set(ctx context.Context, aperturaID uuid.UUID, version int64, totales ledger.Totales, ttl time.Duration) error {
	payload, err := json.Marshal(entradaTotales{AperturaID: aperturaID, Totales: totales})
	if err != nil {
		return err
	}
	return c.cb.Execute(func() error {
		err := c.client.Watch(ctx, func(tx *redis.Tx) error {
			actual, err := tx.Get(ctx, KeyTotalesVersion).Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if actual != version {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.Set(ctx, KeyTotalesActivos, payload, ttl)
				return nil
			})
			return err
		}, KeyTotalesVersion)
		// Lost the race against an invalidation: nothing to store.
		if errors.Is(err, redis.TxFailedErr) {
			return nil
		}
		return err
	})
}

func (c *RedisTotalesCache) Invalidar(ctx context.Context) error {
	return c.cb.Execute(func() error {
		_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Incr(ctx, KeyTotalesVersion)
			p.Del(ctx, KeyTotalesActivos)
			return nil
		})
		return err
	})
}
