package worker

// stock_bajo_worker.go
// Processes low-stock jobs from QueueStockBajo. The latest alert per product
// is kept in a Redis hash that the inventory endpoints read back. Jobs can
// arrive out of order across workers: a second hash keeps the Fecha of the
// last applied job per product and older jobs are dropped.

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	KeyAlertasStockBajo      = "alertas:stock_bajo"
	KeyAlertasStockBajoFecha = "alertas:stock_bajo:fecha"
)

// StockBajoPayload is the job envelope sent to QueueStockBajo.
type StockBajoPayload struct {
	ProductoID  uuid.UUID `json:"producto_id"`
	Nombre      string    `json:"nombre"`
	StockActual int       `json:"stock_actual"`
	StockMinimo int       `json:"stock_minimo"`
	Fecha       time.Time `json:"fecha"`
}

type StockBajoWorker struct {
	rdb *redis.Client
}

func NewStockBajoWorker(rdb *redis.Client) *StockBajoWorker {
	return &StockBajoWorker{rdb: rdb}
}

// Process stores the alert, replacing any older one for the same product.
// Restocked products are cleared so the list only shows current shortages.
func (w *StockBajoWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload StockBajoPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	if payload.ProductoID == uuid.Nil {
		return errors.New("stock_bajo_worker: producto_id vacío")
	}

	field := payload.ProductoID.String()
	stamp := payload.Fecha.UnixNano()
	bajo := payload.StockActual <= payload.StockMinimo
	descartado := false

	err := w.rdb.Watch(ctx, func(tx *redis.Tx) error {
		ultimo, err := tx.HGet(ctx, KeyAlertasStockBajoFecha, field).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil && ultimo >= stamp {
			descartado = true
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, KeyAlertasStockBajoFecha, field, stamp)
			if bajo {
				p.HSet(ctx, KeyAlertasStockBajo, field, []byte(raw))
			} else {
				p.HDel(ctx, KeyAlertasStockBajo, field)
			}
			return nil
		})
		return err
	}, KeyAlertasStockBajoFecha)
	if err != nil {
		// redis.TxFailedErr included: another worker wrote this product
		// meanwhile, the retry re-reads it.
		return err
	}

	ev := log.Debug()
	if descartado {
		ev = ev.Bool("descartado", true)
	} else if bajo {
		ev = log.Info()
	}
	ev.Str("producto_id", field).
		Int("stock_actual", payload.StockActual).
		Int("stock_minimo", payload.StockMinimo).
		Msg("stock_bajo_worker: alerta procesada")
	return nil
}

// AlertasStockBajo lists the current alerts, lowest stock first.
func AlertasStockBajo(ctx context.Context, rdb *redis.Client) ([]StockBajoPayload, error) {
	vals, err := rdb.HGetAll(ctx, KeyAlertasStockBajo).Result()
	if err != nil {
		return nil, err
	}
	out := make([]StockBajoPayload, 0, len(vals))
	for _, v := range vals {
		var p StockBajoPayload
		if err := json.Unmarshal([]byte(v), &p); err != nil {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StockActual != out[j].StockActual {
			return out[i].StockActual < out[j].StockActual
		}
		return out[i].Nombre < out[j].Nombre
	})
	return out, nil
}

// AlertasStockBajo reads back the alerts stored by StockBajoWorker.
func (d *Dispatcher) AlertasStockBajo(ctx context.Context) ([]StockBajoPayload, error) {
	return AlertasStockBajo(ctx, d.rdb)
}
