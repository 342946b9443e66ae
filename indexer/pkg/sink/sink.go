// Package sink bridges the program's fire-and-forget event stream to the
// Postgres history store. Publish never blocks the donation path: events are
// buffered and written by a background loop with retry on transient database
// errors.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/solstream/tipjar/indexer/pkg/metrics"
	"github.com/solstream/tipjar/program/pkg/prog"
	"github.com/solstream/tipjar/utils/pkg/retry"
)

const defaultBufferSize = 1024

// HistoryStore is the subset of the store the sink writes through.
type HistoryStore interface {
	RecordDonation(ctx context.Context, ev prog.DonationReceived) error
	RecordStreamer(ctx context.Context, ev prog.StreamerRegistered) error
}

// Config configures a Sink.
type Config struct {
	Logger     *slog.Logger
	Store      HistoryStore
	BufferSize int
	Retry      retry.Config
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Store == nil {
		return errors.New("store is required")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	return nil
}

// Sink implements prog.Sink backed by the history store.
type Sink struct {
	log      *slog.Logger
	store    HistoryStore
	retryCfg retry.Config
	ch       chan prog.Event
}

// New creates a Sink. Run must be started for events to reach the store.
func New(cfg Config) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Sink{
		log:      cfg.Logger,
		store:    cfg.Store,
		retryCfg: cfg.Retry,
		ch:       make(chan prog.Event, cfg.BufferSize),
	}, nil
}

// Publish enqueues an event for persistence. If the buffer is full the event
// is dropped with a warning; the donation path is never blocked.
func (s *Sink) Publish(_ context.Context, e prog.Event) {
	select {
	case s.ch <- e:
		metrics.EventsPublishedTotal.WithLabelValues(e.Name()).Inc()
	default:
		metrics.EventsDroppedTotal.WithLabelValues(e.Name(), "buffer_full").Inc()
		s.log.Warn("sink: event buffer full, dropping event", "event", e.Name())
	}
}

// Run consumes buffered events until ctx is cancelled.
func (s *Sink) Run(ctx context.Context) error {
	s.log.Info("sink: started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sink: stopping", "reason", ctx.Err(), "pending", len(s.ch))
			return nil
		case e := <-s.ch:
			s.write(ctx, e)
		}
	}
}

func (s *Sink) write(ctx context.Context, e prog.Event) {
	err := retry.Do(ctx, s.retryCfg, func() error {
		timer := prometheus.NewTimer(metrics.StoreWriteDuration)
		defer timer.ObserveDuration()
		return s.persist(ctx, e)
	})
	if err != nil {
		metrics.StoreWritesTotal.WithLabelValues(e.Name(), "error").Inc()
		metrics.EventsDroppedTotal.WithLabelValues(e.Name(), "store_error").Inc()
		s.log.Warn("sink: failed to persist event", "event", e.Name(), "error", err)
		return
	}
	metrics.StoreWritesTotal.WithLabelValues(e.Name(), "ok").Inc()
}

func (s *Sink) persist(ctx context.Context, e prog.Event) error {
	switch ev := e.(type) {
	case prog.DonationReceived:
		return s.store.RecordDonation(ctx, ev)
	case prog.StreamerRegistered:
		return s.store.RecordStreamer(ctx, ev)
	default:
		return fmt.Errorf("unknown event kind %q", e.Name())
	}
}
