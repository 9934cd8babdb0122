package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultQueueKey is the Redis list the indexer consumes.
const DefaultQueueKey = "drops:events"

// Sink receives batches of committed events in commit order.
type Sink interface {
	Publish(ctx context.Context, envs []Envelope) error
}

// Multi fans a batch out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, envs []Envelope) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, envs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps every published envelope in memory.
type Recorder struct {
	mu   sync.Mutex
	envs []Envelope
}

func (r *Recorder) Publish(_ context.Context, envs []Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, envs...)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Envelope, len(r.envs))
	copy(out, r.envs)
	return out
}

// Names returns the event names in publish order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.envs))
	for i, e := range r.envs {
		names[i] = e.Name
	}
	return names
}

// Last returns the most recent envelope, or nil.
func (r *Recorder) Last() *Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.envs) == 0 {
		return nil
	}
	e := r.envs[len(r.envs)-1]
	return &e
}

// RedisSink pushes JSON envelopes onto a Redis list for the indexer.
type RedisSink struct {
	rdb *redis.Client
	key string
}

func NewRedisSink(rdb *redis.Client, key string) *RedisSink {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisSink{rdb: rdb, key: key}
}

// Key returns the list the sink writes to.
func (s *RedisSink) Key() string { return s.key }

// Publish appends the whole batch in one MULTI/EXEC so a consumer never sees
// half of an operation's events.
func (s *RedisSink) Publish(ctx context.Context, envs []Envelope) error {
	if len(envs) == 0 {
		return nil
	}
	vals := make([]any, 0, len(envs))
	for _, e := range envs {
		raw, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event %d: %w", e.Seq, err)
		}
		vals = append(vals, string(raw))
	}
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, s.key, vals...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("rpush %s: %w", s.key, err)
	}
	return nil
}
