package worker

// retry_cron.go
// Failed jobs are parked in a sorted set scored by their next attempt time.
// A background goroutine moves the due ones back to their queue.

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	KeyReintentos = "jobs:reintentos"

	MaxJobAttempts     = 3
	retryTickInterval  = 10 * time.Second
	retryBatchSize     = 50
	retryBaseBackoff   = 5 * time.Second
	retryMaxBackoffExp = 6
)

type reintento struct {
	Queue string `json:"queue"`
	Job   Job    `json:"job"`
}

// computeRetryBackoff doubles the wait after each attempt: 5s, 10s, 20s...
func computeRetryBackoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	if attempts > retryMaxBackoffExp {
		attempts = retryMaxBackoffExp
	}
	return retryBaseBackoff << (attempts - 1)
}

func scheduleRetry(ctx context.Context, rdb *redis.Client, queue string, job Job, now time.Time) error {
	data, err := json.Marshal(reintento{Queue: queue, Job: job})
	if err != nil {
		return err
	}
	due := now.Add(computeRetryBackoff(job.Attempts))
	return rdb.ZAdd(ctx, KeyReintentos, redis.Z{Score: float64(due.Unix()), Member: data}).Err()
}

// StartRetryCron launches a background goroutine that re-enqueues due retries.
// It respects the context for graceful shutdown.
func StartRetryCron(ctx context.Context, rdb *redis.Client) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				if n, err := requeueDue(ctx, rdb, time.Now()); err != nil {
					log.Error().Err(err).Msg("retry_cron: failed to requeue retries")
				} else if n > 0 {
					log.Info().Int("count", n).Msg("retry_cron: retries requeued")
				}
			}
		}
	}()
}

// requeueDue moves every retry due at or before now back to its queue.
// ZREM decides ownership, so concurrent crons never requeue a job twice.
func requeueDue(ctx context.Context, rdb *redis.Client, now time.Time) (int, error) {
	members, err := rdb.ZRangeByScore(ctx, KeyReintentos, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: retryBatchSize,
	}).Result()
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, m := range members {
		removed, err := rdb.ZRem(ctx, KeyReintentos, m).Result()
		if err != nil {
			return moved, err
		}
		if removed == 0 {
			continue
		}
		var r reintento
		if err := json.Unmarshal([]byte(m), &r); err != nil {
			log.Error().Err(err).Msg("retry_cron: dropping malformed retry")
			continue
		}
		if err := push(ctx, rdb, r.Queue, r.Job); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}
