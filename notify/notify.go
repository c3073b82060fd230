// Package notify fans engine and scan events out to best-effort sinks.
// A failing sink is logged and otherwise ignored.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

type Sink interface {
	Name() string
	Publish(ctx context.Context, ev Event) error
}

const DefaultPublishTimeout = 3 * time.Second

// Broadcaster delivers every event to every sink, each delivery in its own
// goroutine so a slow broker never blocks the caller.
type Broadcaster struct {
	sinks   []Sink
	timeout time.Duration
	log     zerolog.Logger
	now     func() time.Time

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewBroadcaster(log zerolog.Logger, timeout time.Duration, sinks ...Sink) *Broadcaster {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &Broadcaster{
		sinks:   sinks,
		timeout: timeout,
		log:     log.With().Str("component", "notify").Logger(),
		now:     time.Now,
	}
}

func (b *Broadcaster) Add(s Sink) {
	b.mu.Lock()
	b.sinks = append(b.sinks, s)
	b.mu.Unlock()
}

// Notify satisfies lending.Notifier.
func (b *Broadcaster) Notify(eventType string, payload any) {
	b.Publish(Event{Type: eventType, Payload: payload})
}

func (b *Broadcaster) Publish(ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = b.now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, s := range b.sinks {
		b.wg.Add(1)
		go b.deliver(s, ev)
	}
}

func (b *Broadcaster) deliver(s Sink, ev Event) {
	defer b.wg.Done()
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if err := s.Publish(ctx, ev); err != nil {
		b.log.Warn().Err(err).Str("sink", s.Name()).Str("event", ev.Type).Msg("publish failed")
	}
}

// Wait blocks until in-flight deliveries finish.
func (b *Broadcaster) Wait() { b.wg.Wait() }

// Close stops accepting events and drains in-flight deliveries.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
}

// Discard drops every event.
type Discard struct{}

func (Discard) Notify(string, any) {}

// LogSink writes events at debug level; ids only, payloads may carry names.
type LogSink struct {
	Log zerolog.Logger
}

func (LogSink) Name() string { return "log" }

func (s LogSink) Publish(_ context.Context, ev Event) error {
	s.Log.Debug().Str("event_id", ev.ID).Str("event", ev.Type).Msg("event")
	return nil
}
