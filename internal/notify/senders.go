package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"salonhub.io/internal/obs"
)

// LogSender writes messages to the log instead of delivering them. It is
// the development fallback for channels without a configured provider.
type LogSender struct{}

func (LogSender) Send(_ context.Context, r Rendered) error {
	obs.Logger().Info("notification",
		zap.String("id", r.ID),
		zap.String("channel", string(r.Channel)),
		zap.String("to", r.Recipient),
		zap.String("subject", r.Subject),
		zap.String("body", r.Body))
	return nil
}

// SMTPConfig holds mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers email through an SMTP relay with STARTTLS when offered.
type SMTPSender struct {
	cfg      SMTPConfig
	sendMail sendMailFunc
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp: host is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("smtp: from address is required")
	}
	return &SMTPSender{cfg: cfg, sendMail: smtp.SendMail}, nil
}

func (s *SMTPSender) Send(ctx context.Context, r Rendered) error {
	if r.Recipient == "" {
		return errors.New("smtp: recipient required")
	}
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	msg := buildEmail(s.cfg.From, r)

	// net/smtp has no context support; run it aside so the dispatch timeout
	// still bounds the caller.
	done := make(chan error, 1)
	go func() {
		done <- s.sendMail(addr, auth, s.cfg.From, []string{r.Recipient}, msg)
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildEmail(from string, r Rendered) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + r.Recipient + "\r\n")
	b.WriteString("Subject: " + sanitizeHeader(r.Subject) + "\r\n")
	b.WriteString("Message-ID: <" + r.ID + "@salonhub>\r\n")
	b.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(r.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

type confirmPublisher interface {
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
}

// AMQPSender publishes messages to a topic exchange for an external gateway
// (the SMS provider bridge) with publisher confirms.
type AMQPSender struct {
	exchange string
	pub      confirmPublisher
	closers  []func() error
}

// DialAMQP connects, declares the exchange and enables publisher confirms.
func DialAMQP(url, exchange string) (*AMQPSender, error) {
	if exchange == "" {
		exchange = "notifications"
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp declare exchange: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp confirm mode: %w", err)
	}
	return &AMQPSender{exchange: exchange, pub: ch, closers: []func() error{ch.Close, conn.Close}}, nil
}

type amqpEnvelope struct {
	ID        string `json:"id"`
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
	Template  string `json:"template"`
	TenantID  *int64 `json:"tenantId,omitempty"`
}

func (s *AMQPSender) Send(ctx context.Context, r Rendered) error {
	body, err := json.Marshal(amqpEnvelope{
		ID:        r.ID,
		Channel:   string(r.Channel),
		Recipient: r.Recipient,
		Subject:   r.Subject,
		Body:      r.Body,
		Template:  r.Template,
		TenantID:  r.TenantID,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	key := "notify." + string(r.Channel) + "." + r.Template
	confirm, err := s.pub.PublishWithDeferredConfirmWithContext(ctx, s.exchange, key, true, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    r.ID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	if confirm == nil {
		return nil
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("amqp confirm: %w", err)
	}
	if !acked {
		return errors.New("amqp: broker nacked publish")
	}
	return nil
}

func (s *AMQPSender) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
