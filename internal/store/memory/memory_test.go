package memory

import (
	"context"
	"testing"
	"time"

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

func TestRegisterTenantIsAtomic(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, &auth.User{Email: "taken@spa.test", Role: auth.RoleCustomer}))

	err := s.RegisterTenant(ctx, &tenant.Tenant{Name: "A", Subdomain: "a"}, &auth.User{Email: "TAKEN@spa.test", Role: auth.RoleAdmin})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	list, err := s.ListTenants(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	tn := &tenant.Tenant{Name: "A", Subdomain: "a"}
	admin := &auth.User{Email: "owner@a.test", Role: auth.RoleAdmin}
	require.NoError(t, s.RegisterTenant(ctx, tn, admin))
	require.NotNil(t, admin.TenantID)
	assert.Equal(t, tn.ID, *admin.TenantID)

	got, err := s.FindUserByEmail(ctx, "OWNER@a.test")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)

	assert.ErrorIs(t, s.CreateTenant(ctx, &tenant.Tenant{Subdomain: "a"}), tenant.ErrSubdomainTaken)
}

func TestResolveSaleIsConditional(t *testing.T) {
	s := New()
	ctx := context.Background()
	sale := &sales.Sale{TenantID: 3, TransactionID: "T1", Status: sales.StatusPending, TotalPrice: decimal.NewFromInt(1000)}
	require.NoError(t, s.CreateSale(ctx, sale))
	assert.ErrorIs(t, s.CreateSale(ctx, &sales.Sale{TenantID: 3, TransactionID: "T1"}), apperr.ErrConflict)
	// Transaction ids are only unique within a tenant.
	require.NoError(t, s.CreateSale(ctx, &sales.Sale{TenantID: 4, TransactionID: "T1", Status: sales.StatusPending}))

	c := decimal.NewFromInt(100)
	got, err := s.ResolveSale(ctx, sales.Resolution{SaleID: sale.ID, Status: sales.StatusApproved, ApproverID: 9, Commission: &c, At: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, sales.StatusApproved, got.Status)
	assert.Equal(t, int64(9), *got.ApproverID)

	_, err = s.ResolveSale(ctx, sales.Resolution{SaleID: sale.ID, Status: sales.StatusRejected, ApproverID: 10})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	stored, err := s.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sales.StatusApproved, stored.Status)

	sum, err := s.SummarizeSales(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Approved)
	assert.True(t, c.Equal(sum.CommissionTotal))
}

func TestListSalesFilters(t *testing.T) {
	s := New()
	ctx := context.Background()
	emp := int64(5)
	for i, txn := range []string{"A", "B", "C"} {
		require.NoError(t, s.CreateSale(ctx, &sales.Sale{
			TenantID:      int64(1 + i%2),
			EmployeeID:    int64(4 + i%2),
			TransactionID: txn,
			Status:        sales.StatusPending,
		}))
	}
	tenant1 := int64(1)
	list, err := s.ListSales(ctx, sales.Filter{TenantID: &tenant1})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "C", list[0].TransactionID)

	list, err = s.ListSales(ctx, sales.Filter{EmployeeID: &emp})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "B", list[0].TransactionID)

	list, err = s.ListSales(ctx, sales.Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestOutboxLease(t *testing.T) {
	s := New()
	ctx := context.Background()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.EnqueueNotification(ctx, &notify.Message{ID: "m1", Channel: notify.ChannelEmail, CreatedAt: t0}))
	require.NoError(t, s.EnqueueNotification(ctx, &notify.Message{ID: "m2", Channel: notify.ChannelSMS, CreatedAt: t0.Add(time.Second)}))

	batch, err := s.ClaimNotifications(ctx, t0.Add(time.Second), t0.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "m1", batch[0].ID)
	assert.Equal(t, 1, batch[0].Attempts)

	// Leased messages are not handed out twice, yet still count as pending.
	batch, err = s.ClaimNotifications(ctx, t0.Add(2*time.Second), t0.Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, batch)
	pending, err := s.CountPendingNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pending)

	require.NoError(t, s.AckNotification(ctx, "m1", t0))
	require.NoError(t, s.NackNotification(ctx, "m2", t0.Add(10*time.Second), "gateway down"))

	batch, err = s.ClaimNotifications(ctx, t0.Add(10*time.Second), t0.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, 2, batch[0].Attempts)
	assert.Equal(t, "gateway down", batch[0].LastError)

	require.NoError(t, s.DeadNotification(ctx, "m2", "gave up"))
	assert.Empty(t, s.PendingNotifications())
	pending, err = s.CountPendingNotifications(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestAuditListNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	tenantA, tenantB := int64(1), int64(2)
	require.NoError(t, s.AppendAudit(ctx, &audit.Entry{Action: audit.ActionLoginSuccess, TenantID: &tenantA}))
	require.NoError(t, s.AppendAudit(ctx, &audit.Entry{Action: audit.ActionSaleRecorded, TenantID: &tenantA}))
	require.NoError(t, s.AppendAudit(ctx, &audit.Entry{Action: audit.ActionSaleRecorded, TenantID: &tenantB}))
	require.NoError(t, s.AppendAudit(ctx, &audit.Entry{Action: audit.ActionLoginFailed}))

	list, err := s.ListAudit(ctx, audit.Filter{TenantID: &tenantA})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, audit.ActionSaleRecorded, list[0].Action)

	list, err = s.ListAudit(ctx, audit.Filter{Action: audit.ActionSaleRecorded, Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, &tenantB, list[0].TenantID)
}
