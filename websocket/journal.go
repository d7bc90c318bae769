package websocket

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sachin-Buluswar/DebateAI-sub002/internal/debate"
)

// EventJournal appends every broadcast event to a Redis stream, bounded
// per session. Best effort: when Redis is absent or down the journal is
// a no-op and delivery to live connections is unaffected.
type EventJournal struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewEventJournal connects to Redis. An empty addr disables journaling.
func NewEventJournal(addr, password string, db int, logger zerolog.Logger) *EventJournal {
	journal := &EventJournal{log: logger}
	if addr == "" {
		return journal
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, event journal disabled")
		return journal
	}
	journal.rdb = rdb
	return journal
}

// Append journals one event for a session.
func (j *EventJournal) Append(sessionID string, event *debate.Event) {
	if j == nil || j.rdb == nil {
		return
	}

	data, err := debate.MarshalEvent(event)
	if err != nil {
		j.log.Error().Err(err).Msg("failed to marshal event for journal")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	streamKey := fmt.Sprintf("debate:%s:events", sessionID)
	err = j.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey,
		Values: map[string]interface{}{"data": data},
		MaxLen: 10000,
		Approx: true,
	}).Err()
	if err != nil {
		j.log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to journal event")
	}
}
