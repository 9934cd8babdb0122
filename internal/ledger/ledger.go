// Package ledger holds the engine's explicit state and serializes every
// mutating operation against it. Operations run inside Update with a single
// clock reading; a failing operation is rolled back and publishes nothing.
package ledger

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/0gfoundation/0g-drops/internal/events"
)

// Observer is notified after every operation settles.
type Observer interface {
	Committed(op string, envs []events.Envelope)
	Rejected(op string, err error)
}

type Ledger struct {
	mu    sync.RWMutex
	st    *State
	clock Clock
	sink  events.Sink
	obs   Observer
	log   *zap.Logger
}

type Option func(*Ledger)

func WithSink(s events.Sink) Option { return func(l *Ledger) { l.sink = s } }

func WithObserver(o Observer) Option { return func(l *Ledger) { l.obs = o } }

func WithLogger(log *zap.Logger) Option { return func(l *Ledger) { l.log = log } }

// New wraps st. A nil clock means SystemClock.
func New(st *State, clock Clock, opts ...Option) *Ledger {
	if clock == nil {
		clock = SystemClock{}
	}
	st.Normalize()
	l := &Ledger{st: st, clock: clock, log: zap.NewNop()}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Update runs fn as one atomic operation. If fn returns an error every write
// it made is undone and its events are discarded. Committed events are
// sequenced and handed to the sink before the write lock is released, so the
// sink observes the global operation order.
func (l *Ledger) Update(ctx context.Context, op string, fn func(tx *Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now().Unix()
	if now < l.st.LastTime {
		now = l.st.LastTime
	}
	tx := &Tx{now: now, st: l.st}

	if err := tx.run(fn); err != nil {
		tx.rollback()
		l.log.Debug("operation rejected", zap.String("op", op), zap.Error(err))
		if l.obs != nil {
			l.obs.Rejected(op, err)
		}
		return err
	}

	l.st.LastTime = now
	envs := make([]events.Envelope, len(tx.events))
	for i, ev := range tx.events {
		l.st.Seq++
		envs[i] = events.Envelope{
			Seq:     l.st.Seq,
			Name:    ev.EventName(),
			Time:    now,
			Op:      op,
			Payload: ev,
		}
	}

	l.log.Info("operation committed",
		zap.String("op", op),
		zap.Int64("time", now),
		zap.Int("events", len(envs)),
	)
	if l.sink != nil && len(envs) > 0 {
		// State is already committed; a sink failure cannot undo it.
		if err := l.sink.Publish(ctx, envs); err != nil {
			l.log.Error("publish events", zap.String("op", op), zap.Uint64("last_seq", l.st.Seq), zap.Error(err))
		}
	}
	if l.obs != nil {
		l.obs.Committed(op, envs)
	}
	return nil
}

// View runs fn under the read lock. fn must not mutate st.
func (l *Ledger) View(fn func(st *State) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fn(l.st)
}

// Now returns the time an operation starting now would observe.
func (l *Ledger) Now() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	now := l.clock.Now().Unix()
	if now < l.st.LastTime {
		return l.st.LastTime
	}
	return now
}
