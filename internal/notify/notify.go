// Package notify queues outbound email and SMS in a persistent outbox and
// delivers them from a background dispatcher, so a slow or failing provider
// never affects the request that produced the notification.
package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"salonhub.io/internal/ids"
	"salonhub.io/internal/obs"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

func (c Channel) Valid() bool { return c == ChannelEmail || c == ChannelSMS }

// Intent is a request to notify someone.
type Intent struct {
	Channel   Channel
	Recipient string
	Template  string
	Payload   map[string]any
	TenantID  *int64
}

// Message is a queued intent.
type Message struct {
	ID        string
	Channel   Channel
	Recipient string
	Template  string
	Payload   map[string]any
	TenantID  *int64
	Attempts  int
	LastError string
	CreatedAt time.Time
}

// Queue is the persistent outbox.
type Queue interface {
	EnqueueNotification(ctx context.Context, m *Message) error
	// ClaimNotifications leases up to limit due messages until leaseUntil and
	// increments their attempt counter.
	ClaimNotifications(ctx context.Context, now, leaseUntil time.Time, limit int) ([]Message, error)
	AckNotification(ctx context.Context, id string, at time.Time) error
	NackNotification(ctx context.Context, id string, retryAt time.Time, lastErr string) error
	DeadNotification(ctx context.Context, id string, lastErr string) error
	// CountPendingNotifications reports messages neither sent nor dead,
	// leased ones included.
	CountPendingNotifications(ctx context.Context) (int, error)
}

// Enqueuer accepts notification intents. Outbox implements it.
type Enqueuer interface {
	Enqueue(ctx context.Context, in Intent)
}

var errInvalidIntent = errors.New("notify: invalid intent")

// Outbox writes intents to the queue. Failures are logged and dropped.
type Outbox struct {
	queue Queue
	now   func() time.Time
}

func NewOutbox(q Queue) *Outbox {
	return &Outbox{queue: q, now: time.Now}
}

func (o *Outbox) Enqueue(ctx context.Context, in Intent) {
	if o == nil || o.queue == nil {
		return
	}
	in.Recipient = strings.TrimSpace(in.Recipient)
	if !in.Channel.Valid() || in.Recipient == "" || in.Template == "" {
		obs.Logger().Warn("notification dropped",
			zap.String("channel", string(in.Channel)),
			zap.String("template", in.Template),
			zap.Error(errInvalidIntent))
		return
	}
	msg := &Message{
		ID:        ids.New(),
		Channel:   in.Channel,
		Recipient: in.Recipient,
		Template:  in.Template,
		Payload:   in.Payload,
		TenantID:  in.TenantID,
		CreatedAt: o.now().UTC(),
	}
	if err := o.queue.EnqueueNotification(context.WithoutCancel(ctx), msg); err != nil {
		obs.Logger().Warn("notification enqueue failed",
			zap.String("id", msg.ID),
			zap.String("template", msg.Template),
			zap.Error(err))
	}
}
