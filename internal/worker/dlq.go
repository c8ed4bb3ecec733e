package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Invoicing jobs that exhaust their retry budget are parked on a per-queue
// Redis list (dead:<queue>). Entries keep the raw payload so an operator can
// inspect the cause and requeue by hand once it is fixed.

const deadLetterPrefix = "dead:"

// deadJob is the parked envelope. FailedAt is RFC 3339 in UTC.
type deadJob struct {
	Queue    string          `json:"queue"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Cause    string          `json:"cause"`
	Attempts int             `json:"attempts"`
	FailedAt string          `json:"failed_at"`
}

// ParkJob moves a permanently failed job onto the dead-letter list. Parking
// is best-effort: the invoice record already carries the ERROR status, so a
// Redis failure here is logged and swallowed.
func ParkJob(ctx context.Context, rdb *redis.Client, queue, jobType string, payload json.RawMessage, cause string, attempts int) {
	entry := deadJob{
		Queue:    queue,
		Type:     jobType,
		Payload:  payload,
		Cause:    cause,
		Attempts: attempts,
		FailedAt: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("marshal dead letter entry")
		return
	}
	key := deadLetterPrefix + queue
	if err := rdb.LPush(ctx, key, data).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("push to dead letter list")
		return
	}
	log.Warn().
		Str("queue", queue).
		Str("job_type", jobType).
		Str("cause", cause).
		Int("attempts", attempts).
		Msg("job parked on dead letter list")
}

// DeadLetterDepth reports how many jobs are parked for a queue.
func DeadLetterDepth(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, deadLetterPrefix+queue).Result()
}
