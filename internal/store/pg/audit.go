package pg

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"salonhub.io/internal/audit"
)

func (s *Store) AppendAudit(ctx context.Context, e *audit.Entry) error {
	if s.db == nil {
		return errNoDB
	}
	details, err := marshalJSON(e.Details)
	if err != nil {
		return err
	}
	err = s.db.QueryRowContext(ctx, `
		insert into audit_logs (action, user_id, tenant_id, target_type, target_id, details, ip, request_id, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		returning id
	`, e.Action, nullInt(e.ActorID), nullInt(e.TenantID), e.TargetType, e.TargetID, details,
		e.IP, e.RequestID, e.CreatedAt).Scan(&e.ID)
	return mapErr(err, nil, nil)
}

func (s *Store) ListAudit(ctx context.Context, f audit.Filter) ([]audit.Entry, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	f = f.Normalize()
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, cond+" $"+strconv.Itoa(len(args)))
	}
	if f.TenantID != nil {
		add("tenant_id =", *f.TenantID)
	}
	if f.ActorID != nil {
		add("user_id =", *f.ActorID)
	}
	if f.Action != "" {
		add("action =", f.Action)
	}
	if !f.From.IsZero() {
		add("created_at >=", f.From)
	}
	if !f.To.IsZero() {
		add("created_at <", f.To)
	}
	query := `select id, action, user_id, tenant_id, target_type, target_id, details, ip, request_id, created_at from audit_logs`
	if len(conds) > 0 {
		query += ` where ` + strings.Join(conds, " and ")
	}
	args = append(args, f.Limit)
	query += ` order by created_at desc, id desc limit $` + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err, nil, nil)
	}
	defer rows.Close()

	out := []audit.Entry{}
	for rows.Next() {
		var (
			e             audit.Entry
			actor, tenant sql.NullInt64
			details       []byte
		)
		if err := rows.Scan(&e.ID, &e.Action, &actor, &tenant, &e.TargetType, &e.TargetID, &details,
			&e.IP, &e.RequestID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ActorID = intPtr(actor)
		e.TenantID = intPtr(tenant)
		if e.Details, err = unmarshalJSON(details); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, mapErr(rows.Err(), nil, nil)
}
