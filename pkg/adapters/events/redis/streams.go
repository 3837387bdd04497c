package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aescanero/wfdiag/pkg/domain"
)

// DefaultStream is the stream every progress update is appended to.
const DefaultStream = "wfdiag:progress"

// StreamsEventBus mirrors progress updates into a Redis Stream so that
// processes outside this one can follow sessions.
type StreamsEventBus struct {
	client *redis.Client
	logger *zap.Logger
	stream string
	maxLen int64
	block  time.Duration
	buffer int

	wg sync.WaitGroup
}

// Option configures a StreamsEventBus.
type Option func(*StreamsEventBus)

// WithStream overrides DefaultStream.
func WithStream(key string) Option { return func(e *StreamsEventBus) { e.stream = key } }

// WithMaxLen caps the stream length (approximate trimming). Zero disables trimming.
func WithMaxLen(n int64) Option { return func(e *StreamsEventBus) { e.maxLen = n } }

// WithBlock sets how long a subscriber blocks on each XREAD.
func WithBlock(d time.Duration) Option { return func(e *StreamsEventBus) { e.block = d } }

// WithBuffer sets the subscriber channel capacity.
func WithBuffer(n int) Option { return func(e *StreamsEventBus) { e.buffer = n } }

// NewStreamsEventBus creates a new Redis Streams event bus
func NewStreamsEventBus(client *redis.Client, logger *zap.Logger, opts ...Option) *StreamsEventBus {
	e := &StreamsEventBus{
		client: client,
		logger: logger,
		stream: DefaultStream,
		maxLen: 1000,
		block:  time.Second,
		buffer: 64,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Publish appends update to the stream
func (e *StreamsEventBus) Publish(ctx context.Context, update domain.ProgressUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal progress update: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: e.stream,
		Values: map[string]interface{}{
			"session_id": update.SessionID.String(),
			"status":     string(update.Status),
			"data":       string(data),
		},
	}
	if e.maxLen > 0 {
		args.MaxLen = e.maxLen
		args.Approx = true
	}

	id, err := e.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}

	e.logger.Debug("progress update mirrored",
		zap.String("session_id", update.SessionID.String()),
		zap.String("status", string(update.Status)),
		zap.String("stream", e.stream),
		zap.String("message_id", id))

	return nil
}

// Subscribe follows the stream from its current tail. Only updates appended
// after Subscribe returns are delivered.
func (e *StreamsEventBus) Subscribe(ctx context.Context, sessionID uuid.UUID) (<-chan domain.ProgressUpdate, error) {
	start, err := e.tail(ctx)
	if err != nil {
		return nil, err
	}

	ch := make(chan domain.ProgressUpdate, e.buffer)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer close(ch)
		e.readStream(ctx, start, sessionID, ch)
	}()

	e.logger.Debug("subscribed to progress stream",
		zap.String("stream", e.stream),
		zap.String("session_id", sessionID.String()),
		zap.String("start", start))

	return ch, nil
}

// tail returns the id of the newest entry, or "0" for an empty stream.
func (e *StreamsEventBus) tail(ctx context.Context) (string, error) {
	msgs, err := e.client.XRevRangeN(ctx, e.stream, "+", "-", 1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("failed to read stream tail: %w", err)
	}
	if len(msgs) == 0 {
		return "0", nil
	}
	return msgs[0].ID, nil
}

// readStream reads updates until ctx is done
func (e *StreamsEventBus) readStream(ctx context.Context, last string, sessionID uuid.UUID, ch chan<- domain.ProgressUpdate) {
	for ctx.Err() == nil {
		streams, err := e.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{e.stream, last},
			Count:   100,
			Block:   e.block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			e.logger.Error("failed to read from stream",
				zap.String("stream", e.stream),
				zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				last = message.ID
				update, ok := e.decode(message)
				if !ok {
					continue
				}
				if sessionID != uuid.Nil && update.SessionID != sessionID {
					continue
				}
				select {
				case ch <- update:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (e *StreamsEventBus) decode(message redis.XMessage) (domain.ProgressUpdate, bool) {
	var update domain.ProgressUpdate
	data, ok := message.Values["data"].(string)
	if !ok {
		e.logger.Error("invalid message format",
			zap.String("stream", e.stream),
			zap.String("message_id", message.ID))
		return update, false
	}
	if err := json.Unmarshal([]byte(data), &update); err != nil {
		e.logger.Error("failed to unmarshal progress update",
			zap.String("stream", e.stream),
			zap.String("message_id", message.ID),
			zap.Error(err))
		return update, false
	}
	return update, true
}

// Close waits for subscriber goroutines, which stop with their contexts.
// The Redis client is owned by the caller.
func (e *StreamsEventBus) Close() error {
	e.wg.Wait()
	return nil
}
