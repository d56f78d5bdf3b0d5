package staff

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonhub.io/internal/apperr"
	"salonhub.io/internal/audit"
	"salonhub.io/internal/auth"
	"salonhub.io/internal/notify"
	"salonhub.io/internal/retail"
	"salonhub.io/internal/tenancy"
)

type stubRepo struct {
	employees map[int64]*Employee
	nextID    int64
	byUserErr error
}

func (r *stubRepo) CreateEmployee(_ context.Context, e *Employee) error {
	r.nextID++
	e.ID = r.nextID
	cp := *e
	r.employees[e.ID] = &cp
	return nil
}

func (r *stubRepo) GetEmployee(_ context.Context, id int64) (*Employee, error) {
	e, ok := r.employees[id]
	if !ok {
		return nil, ErrEmployeeNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *stubRepo) ListEmployees(_ context.Context, tenantID *int64) ([]Employee, error) {
	var out []Employee
	for i := int64(1); i <= r.nextID; i++ {
		if e, ok := r.employees[i]; ok && (tenantID == nil || e.TenantID == *tenantID) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *stubRepo) UpdateEmployee(_ context.Context, e *Employee) error {
	cp := *e
	r.employees[e.ID] = &cp
	return nil
}

func (r *stubRepo) EmployeeByUser(_ context.Context, tenantID, userID int64) (*Employee, error) {
	if r.byUserErr != nil {
		return nil, r.byUserErr
	}
	for _, e := range r.employees {
		if e.TenantID == tenantID && e.UserID != nil && *e.UserID == userID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrEmployeeNotFound
}

type stubStores map[int64]retail.Store

func (s stubStores) GetStore(_ context.Context, id int64) (*retail.Store, error) {
	st, ok := s[id]
	if !ok {
		return nil, retail.ErrStoreNotFound
	}
	return &st, nil
}

type allActive struct{}

func (allActive) EnsureActive(context.Context, int64) error { return nil }

type captureOutbox struct{ intents []notify.Intent }

func (c *captureOutbox) Enqueue(_ context.Context, in notify.Intent) { c.intents = append(c.intents, in) }

type captureAudit struct{ entries []audit.Entry }

func (c *captureAudit) Record(_ context.Context, e audit.Entry) { c.entries = append(c.entries, e) }

func ptr[T any](v T) *T { return &v }

var (
	tenantA = int64(1)
	tenantB = int64(2)
	adminA  = auth.Principal{ID: 2, Role: auth.RoleAdmin, TenantID: &tenantA}
	adminB  = auth.Principal{ID: 3, Role: auth.RoleAdmin, TenantID: &tenantB}
)

type fixture struct {
	svc    *Service
	repo   *stubRepo
	outbox *captureOutbox
	audit  *captureAudit
}

func newFixture() fixture {
	f := fixture{
		repo:   &stubRepo{employees: map[int64]*Employee{}},
		outbox: &captureOutbox{},
		audit:  &captureAudit{},
	}
	stores := stubStores{
		10: {ID: 10, TenantID: tenantA, Name: "A store"},
		20: {ID: 20, TenantID: tenantB, Name: "B store"},
	}
	f.svc = NewService(f.repo, stores, allActive{}, f.outbox, f.audit)
	return f
}

func TestCreateSendsWelcome(t *testing.T) {
	f := newFixture()
	e, err := f.svc.Create(context.Background(), adminA, Input{
		Name:           ptr("Wanjiru"),
		Email:          ptr(" Wanjiru@Spa.test "),
		Contact:        ptr("+254700000001"),
		Position:       ptr("Stylist"),
		StoreID:        ptr(int64(10)),
		CommissionRate: ptr("0.15"),
	})
	require.NoError(t, err)
	assert.Equal(t, tenantA, e.TenantID)
	assert.Equal(t, "wanjiru@spa.test", e.Email)
	assert.Equal(t, "0.15", *e.CommissionRate)

	require.Len(t, f.outbox.intents, 2)
	assert.Equal(t, notify.ChannelEmail, f.outbox.intents[0].Channel)
	assert.Equal(t, "wanjiru@spa.test", f.outbox.intents[0].Recipient)
	assert.Equal(t, notify.ChannelSMS, f.outbox.intents[1].Channel)
	assert.Equal(t, "Stylist", f.outbox.intents[1].Payload["position"])

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, audit.ActionEmployeeCreated, f.audit.entries[0].Action)
}

func TestCreateWithoutContactSkipsNotifications(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), adminA, Input{Name: ptr("Otieno"), Contact: ptr("0700 000")})
	require.NoError(t, err)
	assert.Empty(t, f.outbox.intents)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, adminA, Input{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Create(ctx, adminA, Input{Name: ptr("X"), CommissionRate: ptr("1.5")})
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, apperr.Details(err), "commissionRate")

	_, err = f.svc.Create(ctx, adminA, Input{Name: ptr("X"), StoreID: ptr(int64(20))})
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "store belongs to another tenant", apperr.Details(err)["storeId"])

	_, err = f.svc.Create(ctx, adminA, Input{Name: ptr("X"), StoreID: ptr(int64(99))})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Create(ctx, auth.Principal{ID: 1, Role: auth.RoleSuperAdmin}, Input{Name: ptr("X")})
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, apperr.Details(err), "tenantId")

	assert.Empty(t, f.repo.employees)
}

func TestGetAndUpdateScope(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	e, err := f.svc.Create(ctx, adminA, Input{Name: ptr("Amina")})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, adminB, e.ID)
	assert.ErrorIs(t, err, tenancy.ErrCrossTenant)
	_, err = f.svc.Update(ctx, adminB, e.ID, Input{Name: ptr("Stolen")})
	assert.ErrorIs(t, err, tenancy.ErrCrossTenant)

	updated, err := f.svc.Update(ctx, adminA, e.ID, Input{Position: ptr("Barber"), CommissionRate: ptr("")})
	require.NoError(t, err)
	assert.Equal(t, "Amina", updated.Name)
	assert.Equal(t, "Barber", updated.Position)
	assert.Nil(t, updated.CommissionRate)

	list, err := f.svc.List(ctx, adminB, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCommissionRate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.Create(ctx, adminA, Input{Name: ptr("Linked"), UserID: ptr(int64(77)), CommissionRate: ptr("0.2")})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, adminA, Input{Name: ptr("No rate"), UserID: ptr(int64(78))})
	require.NoError(t, err)

	rate, ok, err := f.svc.CommissionRate(ctx, tenantA, 77)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0.2", rate)

	_, ok, err = f.svc.CommissionRate(ctx, tenantA, 78)
	require.NoError(t, err)
	assert.False(t, ok)

	// The link is per tenant.
	_, ok, err = f.svc.CommissionRate(ctx, tenantB, 77)
	require.NoError(t, err)
	assert.False(t, ok)

	f.repo.byUserErr = errors.New("db down")
	_, _, err = f.svc.CommissionRate(ctx, tenantA, 77)
	assert.Error(t, err)
}
