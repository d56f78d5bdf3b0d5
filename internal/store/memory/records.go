package memory

import (
	"context"
	"maps"
	"sort"
	"time"

	"salonhub.io/internal/audit"
	"salonhub.io/internal/notify"
	"salonhub.io/internal/sales"
)

// --- sales ---

func (s *Store) CreateSale(_ context.Context, sale *sales.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sales {
		if existing.TenantID == sale.TenantID && existing.TransactionID == sale.TransactionID {
			return sales.ErrDuplicateTxn
		}
	}
	sale.ID = s.next("sales")
	s.sales[sale.ID] = *sale
	return nil
}

func (s *Store) GetSale(_ context.Context, id int64) (*sales.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sale, ok := s.sales[id]
	if !ok {
		return nil, sales.ErrSaleNotFound
	}
	return &sale, nil
}

func (s *Store) ListSales(_ context.Context, f sales.Filter) ([]sales.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []sales.Sale{}
	ids := sortedIDs(s.sales)
	// newest first, like the SQL store
	for i := len(ids) - 1; i >= 0; i-- {
		sale := s.sales[ids[i]]
		switch {
		case !matchTenant(f.TenantID, sale.TenantID):
		case f.EmployeeID != nil && *f.EmployeeID != sale.EmployeeID:
		case f.StoreID != nil && *f.StoreID != sale.StoreID:
		case f.Status != "" && f.Status != sale.Status:
		case !f.From.IsZero() && sale.SoldAt.Before(f.From):
		case !f.To.IsZero() && !sale.SoldAt.Before(f.To):
		default:
			out = append(out, sale)
		}
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// ResolveSale performs the compare-and-set on status under the write lock.
func (s *Store) ResolveSale(_ context.Context, r sales.Resolution) (*sales.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.sales[r.SaleID]
	if !ok || sale.Status != sales.StatusPending {
		return nil, sales.ErrNotPending
	}
	approver := r.ApproverID
	at := r.At
	sale.Status = r.Status
	sale.ApproverID = &approver
	sale.CommissionAmount = r.Commission
	sale.ApprovalNotes = r.Notes
	sale.ResolvedAt = &at
	s.sales[r.SaleID] = sale
	return &sale, nil
}

func (s *Store) SummarizeSales(_ context.Context, tenantID *int64) (sales.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum sales.Summary
	for _, sale := range s.sales {
		if !matchTenant(tenantID, sale.TenantID) {
			continue
		}
		switch sale.Status {
		case sales.StatusPending:
			sum.Pending++
		case sales.StatusApproved:
			sum.Approved++
			sum.ApprovedRevenue = sum.ApprovedRevenue.Add(sale.TotalPrice)
			if sale.CommissionAmount != nil {
				sum.CommissionTotal = sum.CommissionTotal.Add(*sale.CommissionAmount)
			}
		case sales.StatusRejected:
			sum.Rejected++
		}
	}
	return sum, nil
}

// --- audit ---

func (s *Store) AppendAudit(_ context.Context, e *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.next("audit_logs")
	cp := *e
	cp.Details = maps.Clone(e.Details)
	s.audit = append(s.audit, cp)
	return nil
}

func (s *Store) ListAudit(_ context.Context, f audit.Filter) ([]audit.Entry, error) {
	f = f.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []audit.Entry{}
	for i := len(s.audit) - 1; i >= 0 && len(out) < f.Limit; i-- {
		e := s.audit[i]
		switch {
		case f.TenantID != nil && (e.TenantID == nil || *e.TenantID != *f.TenantID):
		case f.ActorID != nil && (e.ActorID == nil || *e.ActorID != *f.ActorID):
		case f.Action != "" && f.Action != e.Action:
		case !f.From.IsZero() && e.CreatedAt.Before(f.From):
		case !f.To.IsZero() && !e.CreatedAt.Before(f.To):
		default:
			out = append(out, e)
		}
	}
	return out, nil
}

// --- notification outbox ---

type outboxState uint8

const (
	outboxPending outboxState = iota
	outboxSent
	outboxDead
)

type outboxRow struct {
	msg       notify.Message
	state     outboxState
	available time.Time
}

func (s *Store) EnqueueNotification(_ context.Context, m *notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	cp.Payload = maps.Clone(m.Payload)
	s.outbox[m.ID] = &outboxRow{msg: cp, available: m.CreatedAt}
	return nil
}

// ClaimNotifications leases due messages oldest first. A leased message is
// invisible to other claims until leaseUntil.
func (s *Store) ClaimNotifications(_ context.Context, now, leaseUntil time.Time, limit int) ([]notify.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	due := make([]*outboxRow, 0)
	for _, row := range s.outbox {
		if row.state == outboxPending && !row.available.After(now) {
			due = append(due, row)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].msg.CreatedAt.Before(due[j].msg.CreatedAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	out := make([]notify.Message, 0, len(due))
	for _, row := range due {
		row.msg.Attempts++
		row.available = leaseUntil
		out = append(out, row.msg)
	}
	return out, nil
}

func (s *Store) AckNotification(_ context.Context, id string, _ time.Time) error {
	return s.markOutbox(id, func(row *outboxRow) { row.state = outboxSent })
}

func (s *Store) NackNotification(_ context.Context, id string, retryAt time.Time, lastErr string) error {
	return s.markOutbox(id, func(row *outboxRow) {
		row.available = retryAt
		row.msg.LastError = lastErr
	})
}

func (s *Store) DeadNotification(_ context.Context, id string, lastErr string) error {
	return s.markOutbox(id, func(row *outboxRow) {
		row.state = outboxDead
		row.msg.LastError = lastErr
	})
}

func (s *Store) markOutbox(id string, fn func(*outboxRow)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.outbox[id]; ok {
		fn(row)
	}
	return nil
}

func (s *Store) CountPendingNotifications(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, row := range s.outbox {
		if row.state == outboxPending {
			n++
		}
	}
	return n, nil
}

// PendingNotifications reports messages not yet sent or dead.
func (s *Store) PendingNotifications() []notify.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []notify.Message
	for _, row := range s.outbox {
		if row.state == outboxPending {
			out = append(out, row.msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
