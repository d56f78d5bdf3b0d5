package pg

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"salonhub.io/internal/sales"
)

var saleUnique = constraintErrors{"sales_tenant_transaction_key": sales.ErrDuplicateTxn}

const saleColumns = `id, tenant_id, store_id, employee_id, product_id, quantity, total_price, transaction_id,
	status, approver_id, commission_amount, approval_notes, sold_at, resolved_at`

func scanSale(row interface{ Scan(...any) error }) (*sales.Sale, error) {
	var (
		s          sales.Sale
		status     string
		approver   sql.NullInt64
		commission decimal.NullDecimal
		notes      sql.NullString
		resolved   sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.TenantID, &s.StoreID, &s.EmployeeID, &s.ProductID, &s.Quantity,
		&s.TotalPrice, &s.TransactionID, &status, &approver, &commission, &notes, &s.SoldAt, &resolved); err != nil {
		return nil, err
	}
	s.Status = sales.Status(status)
	s.ApproverID = intPtr(approver)
	if commission.Valid {
		c := commission.Decimal
		s.CommissionAmount = &c
	}
	s.ApprovalNotes = stringPtr(notes)
	s.ResolvedAt = timePtr(resolved)
	return &s, nil
}

func (s *Store) CreateSale(ctx context.Context, sale *sales.Sale) error {
	if s.db == nil {
		return errNoDB
	}
	err := s.db.QueryRowContext(ctx, `
		insert into sales (tenant_id, store_id, employee_id, product_id, quantity, total_price, transaction_id, status, sold_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		returning id
	`, sale.TenantID, sale.StoreID, sale.EmployeeID, sale.ProductID, sale.Quantity, sale.TotalPrice,
		sale.TransactionID, string(sale.Status), sale.SoldAt).Scan(&sale.ID)
	return mapErr(err, sales.ErrSaleNotFound, saleUnique)
}

func (s *Store) GetSale(ctx context.Context, id int64) (*sales.Sale, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	sale, err := scanSale(s.db.QueryRowContext(ctx, `select `+saleColumns+` from sales where id = $1`, id))
	if err != nil {
		return nil, mapErr(err, sales.ErrSaleNotFound, nil)
	}
	return sale, nil
}

// ListSales builds its where clause from the non-zero filter fields,
// newest first.
func (s *Store) ListSales(ctx context.Context, f sales.Filter) ([]sales.Sale, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if f.TenantID != nil {
		add("tenant_id = ?", *f.TenantID)
	}
	if f.EmployeeID != nil {
		add("employee_id = ?", *f.EmployeeID)
	}
	if f.StoreID != nil {
		add("store_id = ?", *f.StoreID)
	}
	if f.Status != "" {
		add("status = ?", string(f.Status))
	}
	if !f.From.IsZero() {
		add("sold_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		add("sold_at < ?", f.To)
	}
	query := `select ` + saleColumns + ` from sales`
	if len(conds) > 0 {
		query += ` where ` + strings.Join(conds, " and ")
	}
	query += ` order by sold_at desc, id desc`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += ` limit $` + strconv.Itoa(len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err, nil, nil)
	}
	defer rows.Close()
	out := []sales.Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sale)
	}
	return out, mapErr(rows.Err(), nil, nil)
}

// ResolveSale is a single conditional update. Zero rows means another
// resolution won, or the sale was never pending.
func (s *Store) ResolveSale(ctx context.Context, r sales.Resolution) (*sales.Sale, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	var commission decimal.NullDecimal
	if r.Commission != nil {
		commission = decimal.NullDecimal{Decimal: *r.Commission, Valid: true}
	}
	sale, err := scanSale(s.db.QueryRowContext(ctx, `
		update sales
		set status = $2, approver_id = $3, commission_amount = $4, approval_notes = $5, resolved_at = $6
		where id = $1 and status = 'pending'
		returning `+saleColumns,
		r.SaleID, string(r.Status), r.ApproverID, commission, nullString(r.Notes), r.At))
	if err != nil {
		return nil, mapErr(err, sales.ErrNotPending, nil)
	}
	return sale, nil
}

func (s *Store) SummarizeSales(ctx context.Context, tenantID *int64) (sales.Summary, error) {
	if s.db == nil {
		return sales.Summary{}, errNoDB
	}
	var sum sales.Summary
	err := s.db.QueryRowContext(ctx, `
		select
			count(*) filter (where status = 'pending'),
			count(*) filter (where status = 'approved'),
			count(*) filter (where status = 'rejected'),
			coalesce(sum(total_price) filter (where status = 'approved'), 0),
			coalesce(sum(commission_amount) filter (where status = 'approved'), 0)
		from sales
		where ($1::bigint is null or tenant_id = $1)
	`, nullInt(tenantID)).Scan(&sum.Pending, &sum.Approved, &sum.Rejected, &sum.ApprovedRevenue, &sum.CommissionTotal)
	if err != nil {
		return sales.Summary{}, mapErr(err, nil, nil)
	}
	return sum, nil
}
