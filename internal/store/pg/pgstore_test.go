package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonhub.io/internal/apperr"
	"salonhub.io/internal/audit"
	"salonhub.io/internal/auth"
	"salonhub.io/internal/notify"
	"salonhub.io/internal/retail"
	"salonhub.io/internal/sales"
	"salonhub.io/internal/staff"
	"salonhub.io/internal/tenant"
)

var (
	_ auth.UserStore    = (*Store)(nil)
	_ tenant.Repository = (*Store)(nil)
	_ staff.Repository  = (*Store)(nil)
	_ retail.Repository = (*Store)(nil)
	_ sales.Repository  = (*Store)(nil)
	_ audit.Store       = (*Store)(nil)
	_ notify.Queue      = (*Store)(nil)
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return New(db), mock
}

var ts = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func saleRow(status string, approver, commission, notes, resolved any) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "store_id", "employee_id", "product_id", "quantity", "total_price", "transaction_id",
		"status", "approver_id", "commission_amount", "approval_notes", "sold_at", "resolved_at",
	}).AddRow(1, 3, 7, 50, 1, 1, "1000.00", "TXN-1", status, approver, commission, notes, ts, resolved)
}

func TestCreateUserMapsUniqueViolation(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`insert into users`).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "users_email_key"})

	err := s.CreateUser(context.Background(), &auth.User{Email: "a@b.c", Role: auth.RoleCustomer})
	assert.ErrorIs(t, err, auth.ErrEmailTaken)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestGetUser(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`from users where id = \$1`).WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "email", "password_hash", "role", "tenant_id",
			"two_factor_secret", "two_factor_enabled", "created_at", "updated_at",
		}).AddRow(9, "mgr", "mgr@spa.test", "hash", "Manager", 3, "", false, ts, ts))
	mock.ExpectQuery(`from users where id = \$1`).WithArgs(int64(10)).WillReturnError(sql.ErrNoRows)

	u, err := s.GetUser(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleManager, u.Role)
	require.NotNil(t, u.TenantID)
	assert.Equal(t, int64(3), *u.TenantID)

	_, err = s.GetUser(context.Background(), 10)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestRegisterTenantRunsInOneTransaction(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`insert into tenants`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery(`insert into users`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	tn := &tenant.Tenant{Name: "A", Subdomain: "a", Plan: tenant.PlanMonthly}
	admin := &auth.User{Email: "owner@a.test", Role: auth.RoleAdmin}
	require.NoError(t, s.RegisterTenant(context.Background(), tn, admin))
	assert.Equal(t, int64(3), tn.ID)
	assert.Equal(t, int64(11), admin.ID)
	assert.Equal(t, int64(3), *admin.TenantID)
}

func TestRegisterTenantRollsBackOnDuplicateEmail(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`insert into tenants`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery(`insert into users`).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "users_email_key"})
	mock.ExpectRollback()

	err := s.RegisterTenant(context.Background(), &tenant.Tenant{Subdomain: "a"}, &auth.User{Role: auth.RoleAdmin})
	assert.ErrorIs(t, err, auth.ErrEmailTaken)
}

func TestResolveSaleIsConditional(t *testing.T) {
	s, mock := newMockStore(t)
	c := decimal.NewFromInt(100)
	notes := "ok"

	mock.ExpectQuery(`(?s)update sales\s+set status = \$2.*where id = \$1 and status = 'pending'`).
		WithArgs(int64(1), "approved", int64(60), sqlmock.AnyArg(), sqlmock.AnyArg(), ts).
		WillReturnRows(saleRow("approved", 60, "100.00", "ok", ts))
	mock.ExpectQuery(`update sales`).WillReturnError(sql.ErrNoRows)

	got, err := s.ResolveSale(context.Background(), sales.Resolution{
		SaleID: 1, Status: sales.StatusApproved, ApproverID: 60, Commission: &c, Notes: &notes, At: ts,
	})
	require.NoError(t, err)
	assert.Equal(t, sales.StatusApproved, got.Status)
	assert.Equal(t, int64(60), *got.ApproverID)
	assert.True(t, c.Equal(*got.CommissionAmount))
	assert.Equal(t, "ok", *got.ApprovalNotes)

	_, err = s.ResolveSale(context.Background(), sales.Resolution{SaleID: 1, Status: sales.StatusRejected, ApproverID: 61, At: ts})
	assert.ErrorIs(t, err, sales.ErrNotPending)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestGetPendingSale(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`from sales where id = \$1`).WithArgs(int64(1)).
		WillReturnRows(saleRow("pending", nil, nil, nil, nil))

	got, err := s.GetSale(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, sales.StatusPending, got.Status)
	assert.Nil(t, got.ApproverID)
	assert.Nil(t, got.CommissionAmount)
	assert.Nil(t, got.ResolvedAt)
	assert.Equal(t, "1000.00", got.TotalPrice.StringFixed(2))
}

func TestListSalesBuildsFilter(t *testing.T) {
	s, mock := newMockStore(t)
	tenantID := int64(3)
	mock.ExpectQuery(`from sales where tenant_id = \$1 and status = \$2 order by sold_at desc, id desc limit \$3`).
		WithArgs(int64(3), "pending", 20).
		WillReturnRows(saleRow("pending", nil, nil, nil, nil))

	list, err := s.ListSales(context.Background(), sales.Filter{TenantID: &tenantID, Status: sales.StatusPending, Limit: 20})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateSaleDuplicate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`insert into sales`).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "sales_tenant_transaction_key"})

	err := s.CreateSale(context.Background(), &sales.Sale{TransactionID: "TXN-1", Status: sales.StatusPending})
	assert.ErrorIs(t, err, sales.ErrDuplicateTxn)
}

func TestForeignKeyAndDriverErrors(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`insert into stores`).WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation})
	mock.ExpectQuery(`insert into stores`).WillReturnError(errors.New("connection reset"))

	err := s.CreateStore(context.Background(), &retail.Store{TenantID: 404, Name: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = s.CreateStore(context.Background(), &retail.Store{TenantID: 1, Name: "x"})
	assert.ErrorIs(t, err, apperr.ErrDependency)
}

func TestUpdateProductNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`update products`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateProduct(context.Background(), &retail.Product{ID: 5})
	assert.ErrorIs(t, err, retail.ErrProductNotFound)
}

func TestListEmployeesAllTenants(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`from employees\s+where \(\$1::bigint is null or tenant_id = \$1\)`).
		WithArgs(sql.NullInt64{}).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "store_id", "user_id", "name", "email", "contact", "position",
			"commission_rate", "created_at", "updated_at",
		}).
			AddRow(1, 3, 7, 50, "Wanjiru", "w@spa.test", "", "Stylist", "0.15", ts, ts).
			AddRow(2, 4, nil, nil, "Otieno", "", "", "", nil, ts, ts))

	list, err := s.ListEmployees(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "0.15", *list[0].CommissionRate)
	assert.Nil(t, list[1].StoreID)
	assert.Nil(t, list[1].CommissionRate)
}

func TestClaimNotifications(t *testing.T) {
	s, mock := newMockStore(t)
	lease := ts.Add(time.Minute)
	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)update notification_outbox o.*for update skip locked`).
		WithArgs(ts, lease, 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "channel", "recipient", "template", "payload", "tenant_id", "attempts", "last_error", "created_at",
		}).AddRow("01J", "email", "a@b.c", "sale_approved", []byte(`{"transactionId":"T1"}`), 3, 1, "", ts))
	mock.ExpectCommit()

	msgs, err := s.ClaimNotifications(context.Background(), ts, lease, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, notify.ChannelEmail, msgs[0].Channel)
	assert.Equal(t, "T1", msgs[0].Payload["transactionId"])
	assert.Equal(t, 1, msgs[0].Attempts)
}

func TestAckUnknownNotification(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`update notification_outbox set status = 'sent'`).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.Error(t, s.AckNotification(context.Background(), "nope", ts))
}

func TestCountPendingNotifications(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`select count\(\*\) from notification_outbox where status = 'pending'`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	n, err := s.CountPendingNotifications(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestListAuditFilters(t *testing.T) {
	s, mock := newMockStore(t)
	tenantID := int64(3)
	mock.ExpectQuery(`from audit_logs where tenant_id = \$1 and action = \$2 order by created_at desc, id desc limit \$3`).
		WithArgs(int64(3), "sale_approved", audit.MaxListLimit).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "action", "user_id", "tenant_id", "target_type", "target_id", "details", "ip", "request_id", "created_at",
		}).AddRow(1, "sale_approved", 60, 3, "sale", "1", []byte(`{"commission":"100.00"}`), "10.0.0.1", "req-1", ts))

	list, err := s.ListAudit(context.Background(), audit.Filter{TenantID: &tenantID, Action: "sale_approved"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "100.00", list[0].Details["commission"])
	assert.Equal(t, int64(60), *list[0].ActorID)
}

func TestNilDatabase(t *testing.T) {
	s := &Store{}
	_, err := s.GetTenant(context.Background(), 1)
	assert.ErrorIs(t, err, apperr.ErrDependency)
	assert.ErrorIs(t, s.Ping(context.Background()), apperr.ErrDependency)
}
