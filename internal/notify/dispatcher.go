package notify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"salonhub.io/internal/obs"
)

// Sender delivers a rendered message over one channel.
type Sender interface {
	Send(ctx context.Context, r Rendered) error
}

// Options tune the dispatcher loop.
type Options struct {
	PollInterval    time.Duration
	BatchSize       int
	MaxAttempts     int
	MaxBackoff      time.Duration
	MaxJitter       time.Duration
	Lease           time.Duration
	DispatchTimeout time.Duration
}

func (o *Options) setDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 10
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 5 * time.Minute
	}
	if o.MaxJitter < 0 {
		o.MaxJitter = 0
	}
	if o.Lease <= 0 {
		o.Lease = time.Minute
	}
	if o.DispatchTimeout <= 0 {
		o.DispatchTimeout = 15 * time.Second
	}
}

// Dispatcher drains the outbox and routes messages to senders by channel.
type Dispatcher struct {
	queue   Queue
	senders map[Channel]Sender
	opts    Options
	now     func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewDispatcher(q Queue, senders map[Channel]Sender, opts Options) (*Dispatcher, error) {
	if q == nil {
		return nil, errors.New("notify: queue is required")
	}
	if len(senders) == 0 {
		return nil, errors.New("notify: at least one sender is required")
	}
	opts.setDefaults()
	return &Dispatcher{
		queue:   q,
		senders: senders,
		opts:    opts,
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec
	}, nil
}

// Run polls until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if _, err := d.ProcessOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			obs.Logger().Warn("outbox: process tick failed", zap.Error(err))
		}
	}
}

// ProcessOnce claims one batch and attempts delivery of each message. It
// returns the number of messages delivered.
func (d *Dispatcher) ProcessOnce(ctx context.Context) (int, error) {
	now := d.now().UTC()
	batch, err := d.queue.ClaimNotifications(ctx, now, now.Add(d.opts.Lease), d.opts.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim notifications: %w", err)
	}

	delivered := 0
	for _, m := range batch {
		if err := d.deliver(ctx, m); err != nil {
			d.fail(ctx, m, err)
			continue
		}
		obs.RecordDelivery(string(m.Channel), "success")
		if err := d.queue.AckNotification(ctx, m.ID, d.now().UTC()); err != nil {
			obs.Logger().Warn("outbox: ack failed", zap.String("id", m.ID), zap.Error(err))
			continue
		}
		delivered++
	}
	d.reportBacklog(ctx)
	return delivered, nil
}

func (d *Dispatcher) reportBacklog(ctx context.Context) {
	n, err := d.queue.CountPendingNotifications(ctx)
	if err != nil {
		obs.Logger().Warn("outbox: count pending failed", zap.Error(err))
		return
	}
	obs.SetOutboxPending(n)
}

func (d *Dispatcher) deliver(ctx context.Context, m Message) error {
	sender, ok := d.senders[m.Channel]
	if !ok {
		return fmt.Errorf("no sender for channel %q", m.Channel)
	}
	r, err := Render(m)
	if err != nil {
		return err
	}
	sctx, cancel := context.WithTimeout(ctx, d.opts.DispatchTimeout)
	defer cancel()
	return sender.Send(sctx, r)
}

func (d *Dispatcher) fail(ctx context.Context, m Message, cause error) {
	fields := []zap.Field{
		zap.String("id", m.ID),
		zap.String("channel", string(m.Channel)),
		zap.String("template", m.Template),
		zap.Int("attempts", m.Attempts),
		zap.Error(cause),
	}
	if m.Attempts >= d.opts.MaxAttempts {
		obs.RecordDelivery(string(m.Channel), "dead")
		obs.Logger().Error("outbox: message dead", fields...)
		if err := d.queue.DeadNotification(ctx, m.ID, cause.Error()); err != nil {
			obs.Logger().Warn("outbox: mark dead failed", zap.String("id", m.ID), zap.Error(err))
		}
		return
	}
	obs.RecordDelivery(string(m.Channel), "retry")
	obs.Logger().Warn("outbox: delivery failed", fields...)
	retryAt := d.now().UTC().Add(backoff(m.Attempts, d.opts.MaxBackoff) + d.jitter())
	if err := d.queue.NackNotification(ctx, m.ID, retryAt, cause.Error()); err != nil {
		obs.Logger().Warn("outbox: nack failed", zap.String("id", m.ID), zap.Error(err))
	}
}

func (d *Dispatcher) jitter() time.Duration {
	if d.opts.MaxJitter <= 0 {
		return 0
	}
	d.rngMu.Lock()
	defer d.rngMu.Unlock()
	return time.Duration(d.rng.Int63n(int64(d.opts.MaxJitter) + 1))
}

// backoff is 1s * 2^(attempts-1), capped at limit.
func backoff(attempts int, limit time.Duration) time.Duration {
	if attempts <= 0 {
		return 0
	}
	seconds := math.Pow(2, float64(attempts-1))
	d := time.Duration(seconds * float64(time.Second))
	if d > limit || d <= 0 {
		return limit
	}
	return d
}
