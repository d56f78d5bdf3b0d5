package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"salonhub.io/internal/notify"
)

var errMessageNotFound = errors.New("outbox message not found")

func (s *Store) EnqueueNotification(ctx context.Context, m *notify.Message) error {
	if s.db == nil {
		return errNoDB
	}
	payload, err := marshalJSON(m.Payload)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into notification_outbox (id, channel, recipient, template, payload, tenant_id, available_at, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $7)
	`, m.ID, string(m.Channel), m.Recipient, m.Template, payload, nullInt(m.TenantID), m.CreatedAt)
	return mapErr(err, nil, nil)
}

// ClaimNotifications leases due rows with for update skip locked so that
// several dispatchers never deliver the same message concurrently.
func (s *Store) ClaimNotifications(ctx context.Context, now, leaseUntil time.Time, limit int) ([]notify.Message, error) {
	var out []notify.Message
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			update notification_outbox o
			set attempts = o.attempts + 1, available_at = $2
			where o.id in (
				select id from notification_outbox
				where status = 'pending' and available_at <= $1
				order by created_at
				limit $3
				for update skip locked
			)
			returning o.id, o.channel, o.recipient, o.template, o.payload, o.tenant_id, o.attempts, o.last_error, o.created_at
		`, now, leaseUntil, limit)
		if err != nil {
			return mapErr(err, nil, nil)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				m       notify.Message
				channel string
				payload []byte
				tenant  sql.NullInt64
			)
			if err := rows.Scan(&m.ID, &channel, &m.Recipient, &m.Template, &payload, &tenant,
				&m.Attempts, &m.LastError, &m.CreatedAt); err != nil {
				return err
			}
			m.Channel = notify.Channel(channel)
			m.TenantID = intPtr(tenant)
			if m.Payload, err = unmarshalJSON(payload); err != nil {
				return err
			}
			out = append(out, m)
		}
		return mapErr(rows.Err(), nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) AckNotification(ctx context.Context, id string, at time.Time) error {
	return s.markOutbox(ctx, `update notification_outbox set status = 'sent', sent_at = $2 where id = $1`, id, at)
}

func (s *Store) NackNotification(ctx context.Context, id string, retryAt time.Time, lastErr string) error {
	return s.markOutbox(ctx, `update notification_outbox set available_at = $2, last_error = $3 where id = $1`, id, retryAt, lastErr)
}

func (s *Store) DeadNotification(ctx context.Context, id string, lastErr string) error {
	return s.markOutbox(ctx, `update notification_outbox set status = 'dead', last_error = $2 where id = $1`, id, lastErr)
}

func (s *Store) CountPendingNotifications(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, errNoDB
	}
	var n int
	err := s.db.QueryRowContext(ctx, `select count(*) from notification_outbox where status = 'pending'`).Scan(&n)
	return n, mapErr(err, nil, nil)
}

func (s *Store) markOutbox(ctx context.Context, query string, args ...any) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapErr(err, nil, nil)
	}
	return expectOne(res, errMessageNotFound)
}
