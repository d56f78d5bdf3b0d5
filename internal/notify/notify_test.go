package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	mu       sync.Mutex
	messages []Message
	acked    []string
	nacked   map[string]time.Time
	dead     []string
	enqErr   error
	countErr error
	counted  int
}

func (q *fakeQueue) EnqueueNotification(_ context.Context, m *Message) error {
	if q.enqErr != nil {
		return q.enqErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, *m)
	return nil
}

func (q *fakeQueue) ClaimNotifications(_ context.Context, _, _ time.Time, limit int) ([]Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := min(limit, len(q.messages))
	out := make([]Message, n)
	for i := range out {
		q.messages[i].Attempts++
		out[i] = q.messages[i]
	}
	q.messages = q.messages[n:]
	return out, nil
}

func (q *fakeQueue) AckNotification(_ context.Context, id string, _ time.Time) error {
	q.acked = append(q.acked, id)
	return nil
}

func (q *fakeQueue) NackNotification(_ context.Context, id string, retryAt time.Time, _ string) error {
	if q.nacked == nil {
		q.nacked = map[string]time.Time{}
	}
	q.nacked[id] = retryAt
	return nil
}

func (q *fakeQueue) DeadNotification(_ context.Context, id string, _ string) error {
	q.dead = append(q.dead, id)
	return nil
}

func (q *fakeQueue) CountPendingNotifications(context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.counted++
	if q.countErr != nil {
		return 0, q.countErr
	}
	return len(q.messages) + len(q.nacked), nil
}

type recordingSender struct {
	sent []Rendered
	err  error
}

func (s *recordingSender) Send(_ context.Context, r Rendered) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, r)
	return nil
}

func TestOutboxEnqueue(t *testing.T) {
	q := &fakeQueue{}
	o := NewOutbox(q)
	tenant := int64(3)

	o.Enqueue(context.Background(), Intent{
		Channel:   ChannelEmail,
		Recipient: " emp@spa.test ",
		Template:  TemplateSaleApproved,
		Payload:   map[string]any{"transactionId": "T1"},
		TenantID:  &tenant,
	})
	require.Len(t, q.messages, 1)
	m := q.messages[0]
	assert.Len(t, m.ID, 26)
	assert.Equal(t, "emp@spa.test", m.Recipient)
	assert.Equal(t, &tenant, m.TenantID)

	// Invalid intents and queue failures never surface.
	o.Enqueue(context.Background(), Intent{Channel: "fax", Recipient: "x", Template: "t"})
	q.enqErr = errors.New("db down")
	o.Enqueue(context.Background(), Intent{Channel: ChannelSMS, Recipient: "+254700000000", Template: TemplateEmployeeWelcome})
	assert.Len(t, q.messages, 1)
}

func TestRender(t *testing.T) {
	r, err := Render(Message{
		ID:        "01",
		Channel:   ChannelEmail,
		Recipient: "emp@spa.test",
		Template:  TemplateSaleApproved,
		Payload:   map[string]any{"transactionId": "T1", "totalPrice": "1000.00", "commission": "100.00", "notes": "ok"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sale T1 approved", r.Subject)
	assert.Equal(t, "Your sale T1 of 1000.00 was approved. Commission: 100.00. Notes: ok", r.Body)

	r, err = Render(Message{Template: TemplateSaleRejected, Payload: map[string]any{"transactionId": "T2", "totalPrice": "5.00"}})
	require.NoError(t, err)
	assert.Equal(t, "Your sale T2 of 5.00 was rejected.", r.Body)

	_, err = Render(Message{Template: "nope"})
	assert.Error(t, err)
}

func TestDispatcherProcessOnce(t *testing.T) {
	q := &fakeQueue{}
	email := &recordingSender{}
	sms := &recordingSender{err: errors.New("gateway down")}
	d, err := NewDispatcher(q, map[Channel]Sender{ChannelEmail: email, ChannelSMS: sms}, Options{MaxAttempts: 2})
	require.NoError(t, err)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	out := NewOutbox(q)
	out.Enqueue(context.Background(), Intent{Channel: ChannelEmail, Recipient: "a@b.c", Template: TemplateSecondFactorEnabled, Payload: map[string]any{"email": "a@b.c"}})
	out.Enqueue(context.Background(), Intent{Channel: ChannelSMS, Recipient: "+254700000000", Template: TemplateEmployeeWelcome, Payload: map[string]any{"name": "N", "position": "P"}})
	smsID := q.messages[1].ID

	n, err := d.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, email.sent, 1)
	assert.Equal(t, "Two-factor authentication enabled", email.sent[0].Subject)
	assert.Len(t, q.acked, 1)

	// First failure is retried after 1s backoff.
	require.Contains(t, q.nacked, smsID)
	assert.Equal(t, now.Add(time.Second), q.nacked[smsID])

	// Second failure exhausts the attempts.
	q.messages = append(q.messages, Message{ID: smsID, Channel: ChannelSMS, Recipient: "+254700000000", Template: TemplateEmployeeWelcome, Attempts: 1})
	_, err = d.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{smsID}, q.dead)
}

func TestDispatcherMissingSender(t *testing.T) {
	q := &fakeQueue{messages: []Message{{ID: "m1", Channel: ChannelSMS, Template: TemplateEmployeeWelcome}}}
	d, err := NewDispatcher(q, map[Channel]Sender{ChannelEmail: &recordingSender{}}, Options{})
	require.NoError(t, err)
	_, err = d.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Contains(t, q.nacked, "m1")

	_, err = NewDispatcher(q, nil, Options{})
	assert.Error(t, err)
}

func TestDispatcherReportsBacklog(t *testing.T) {
	q := &fakeQueue{}
	for _, id := range []string{"m1", "m2", "m3"} {
		q.messages = append(q.messages, Message{ID: id, Channel: ChannelEmail, Template: TemplateSecondFactorEnabled})
	}
	d, err := NewDispatcher(q, map[Channel]Sender{ChannelEmail: &recordingSender{}}, Options{BatchSize: 2})
	require.NoError(t, err)

	n, err := d.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, q.counted)

	// A failed count leaves the tick successful.
	q.countErr = errors.New("db down")
	n, err = d.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, q.counted)
}

func TestBackoff(t *testing.T) {
	limit := 10 * time.Second
	assert.Equal(t, time.Duration(0), backoff(0, limit))
	assert.Equal(t, time.Second, backoff(1, limit))
	assert.Equal(t, 2*time.Second, backoff(2, limit))
	assert.Equal(t, 8*time.Second, backoff(4, limit))
	assert.Equal(t, limit, backoff(5, limit))
	assert.Equal(t, limit, backoff(200, limit))
}

func TestSMTPSender(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.test", Username: "u", Password: "p", From: "no-reply@salonhub.io"})
	require.NoError(t, err)

	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	s.sendMail = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	}
	require.NoError(t, s.Send(context.Background(), Rendered{ID: "m1", Recipient: "a@b.c", Subject: "Hi\r\nBcc: x", Body: "hello"}))
	assert.Equal(t, "smtp.test:587", gotAddr)
	assert.Equal(t, []string{"a@b.c"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Hi  Bcc: x\r\n")
	assert.True(t, strings.HasSuffix(string(gotMsg), "\r\n\r\nhello\r\n"))

	_, err = NewSMTPSender(SMTPConfig{From: "x@y.z"})
	assert.Error(t, err)
}

type fakePublisher struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
}

func (f *fakePublisher) PublishWithDeferredConfirmWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error) {
	f.exchange, f.key, f.msg = exchange, key, msg
	return nil, f.err
}

func TestAMQPSender(t *testing.T) {
	pub := &fakePublisher{}
	s := &AMQPSender{exchange: "notifications", pub: pub}
	require.NoError(t, s.Send(context.Background(), Rendered{ID: "m1", Channel: ChannelSMS, Recipient: "+254700000000", Body: "hi", Template: TemplateEmployeeWelcome}))
	assert.Equal(t, "notifications", pub.exchange)
	assert.Equal(t, "notify.sms.employee_welcome", pub.key)
	assert.Equal(t, "m1", pub.msg.MessageId)
	assert.Equal(t, amqp.Persistent, pub.msg.DeliveryMode)
	assert.JSONEq(t, `{"id":"m1","channel":"sms","recipient":"+254700000000","body":"hi","template":"employee_welcome"}`, string(pub.msg.Body))

	pub.err = errors.New("channel closed")
	assert.Error(t, s.Send(context.Background(), Rendered{ID: "m2", Channel: ChannelSMS}))
}
