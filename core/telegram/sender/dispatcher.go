// Package sender runs outbound Telegram calls on a bounded worker pool so
// handlers never block on delivery to third-party chats.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/inquirybot/core/logger"
	"github.com/m3rciful/inquirybot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned when no queue slot is free.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options tune the pool. Zero values select defaults.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration caps the total time spent on one job, retries included.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

// Stats is a snapshot of dispatcher counters.
type Stats struct {
	Delivered uint64
	Failed    uint64
	Pending   int
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes queued sends with bounded retries.
type Dispatcher struct {
	opts Options
	jobs chan job

	// closing guards sends on jobs against the close in Close.
	closing sync.RWMutex
	closed  bool
	once    sync.Once
	wg      sync.WaitGroup

	delivered atomic.Uint64
	failed    atomic.Uint64
}

// NewDispatcher starts the worker pool.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{opts: opts, jobs: make(chan job, opts.QueueSize)}
	d.wg.Add(opts.Workers)
	for range opts.Workers {
		go func() {
			defer d.wg.Done()
			for j := range d.jobs {
				d.process(j)
			}
		}()
	}
	return d
}

// Enqueue schedules run without waiting for it. run may be called more
// than once when a transient failure is retried.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.closing.RLock()
	defer d.closing.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.jobs <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stats returns the current counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Pending:   len(d.jobs),
	}
}

// Close drains the queue and waits for the workers.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.closing.Lock()
		d.closed = true
		close(d.jobs)
		d.closing.Unlock()
		d.wg.Wait()
	})
}

// retryDelay reports whether err is worth another attempt and how long to
// wait first. Flood-wait answers dictate their own delay.
func (d *Dispatcher) retryDelay(err error, attempt int) (time.Duration, bool) {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return time.Duration(flood.RetryAfter) * time.Second, true
	}
	if netutil.ShouldRetry(err) {
		return d.opts.RetryBackoff * time.Duration(attempt), true
	}
	return 0, false
}

func (d *Dispatcher) process(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := d.opts.MaxRetries + 1
	logger.Debug(j.ctx, "tg.sender", "send.start", j.attrs()...)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = j.run(); err == nil {
			d.delivered.Add(1)
			logger.Debug(j.ctx, "tg.sender", "send.success",
				append(j.attrs(), slog.Int("attempt", attempt), slog.Int("elapsed_ms", elapsedMS(start)))...)
			return
		}

		delay, retry := d.retryDelay(err, attempt)
		if !retry || attempt == attempts {
			break
		}
		logger.Debug(j.ctx, "tg.sender", "send.retry",
			append(j.attrs(), slog.Int("attempt", attempt), slog.Duration("delay", delay))...)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			err = errors.Join(err, ctx.Err())
			attempt = attempts
		case <-timer.C:
		}
	}

	d.failed.Add(1)
	logger.Error(j.ctx, "tg.sender", "send.fail",
		append(j.attrs(),
			slog.String("err", redactToken(err)),
			slog.String("error_kind", classifyError(err)),
			slog.Int("attempts", attempts),
			slog.Int("elapsed_ms", elapsedMS(start)),
		)...)
}

func (j job) attrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return attrs
}

func elapsedMS(start time.Time) int {
	return int(logger.RoundMS(time.Since(start)) / time.Millisecond)
}
