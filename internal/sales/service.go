package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"salonhub.io/internal/apperr"
	"salonhub.io/internal/audit"
	"salonhub.io/internal/auth"
	"salonhub.io/internal/notify"
	"salonhub.io/internal/obs"
	"salonhub.io/internal/retail"
	"salonhub.io/internal/stream"
	"salonhub.io/internal/tenancy"
)

// Catalog resolves the store and product a sale refers to.
type Catalog interface {
	GetStore(ctx context.Context, id int64) (*retail.Store, error)
	GetProduct(ctx context.Context, id int64) (*retail.Product, error)
}

// Rates exposes the stored commission rate of an employee login.
type Rates interface {
	CommissionRate(ctx context.Context, tenantID, userID int64) (string, bool, error)
}

// Directory finds the account of the employee to notify.
type Directory interface {
	GetUser(ctx context.Context, id int64) (*auth.User, error)
}

// Publisher receives committed sale transitions.
type Publisher interface {
	Publish(evt stream.SaleEvent)
}

// RecordInput is what an employee submits.
type RecordInput struct {
	ProductID     int64
	StoreID       int64
	Quantity      int
	TotalPrice    decimal.Decimal
	TransactionID string
}

type Service struct {
	repo    Repository
	catalog Catalog
	rates   Rates
	users   Directory
	tenants auth.TenantChecker
	outbox  notify.Enqueuer
	audit   auth.Auditor
	events  Publisher
	now     func() time.Time
}

// Deps groups the collaborators of Service.
type Deps struct {
	Repo    Repository
	Catalog Catalog
	Rates   Rates
	Users   Directory
	Tenants auth.TenantChecker
	Outbox  notify.Enqueuer
	Audit   auth.Auditor
	// Events is optional.
	Events Publisher
}

func NewService(d Deps) *Service {
	return &Service{
		repo:    d.Repo,
		catalog: d.Catalog,
		rates:   d.Rates,
		users:   d.Users,
		tenants: d.Tenants,
		outbox:  d.Outbox,
		audit:   d.Audit,
		events:  d.Events,
		now:     time.Now,
	}
}

// Record stores a pending sale. The tenant comes from the store, and must
// agree with the caller's own tenant when the token carries one.
func (s *Service) Record(ctx context.Context, p auth.Principal, in RecordInput) (*Sale, error) {
	in.TransactionID = strings.TrimSpace(in.TransactionID)
	fe := apperr.FieldErrors{}
	if in.ProductID <= 0 {
		fe.Add("productId", "is required")
	}
	if in.StoreID <= 0 {
		fe.Add("storeId", "is required")
	}
	if in.Quantity <= 0 {
		fe.Add("quantity", "must be greater than zero")
	}
	if !in.TotalPrice.IsPositive() {
		fe.Add("totalPrice", "must be greater than zero")
	}
	if in.TransactionID == "" {
		fe.Add("transactionId", "is required")
	}
	if err := fe.OrNil(); err != nil {
		return nil, err
	}

	store, err := s.catalog.GetStore(ctx, in.StoreID)
	if err != nil {
		return nil, err
	}
	product, err := s.catalog.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if product.TenantID != store.TenantID {
		return nil, apperr.FieldErrors{"productId": "product is not sold by this store's tenant"}
	}

	tc, err := tenancy.Resolve(p, tenancy.Request{Related: &store.TenantID})
	if err != nil {
		return nil, err
	}
	if tc.All || tc.TenantID != store.TenantID {
		return nil, tenancy.ErrCrossTenant
	}
	if err := s.tenants.EnsureActive(ctx, tc.TenantID); err != nil {
		return nil, err
	}

	sale := &Sale{
		TenantID:      tc.TenantID,
		StoreID:       store.ID,
		EmployeeID:    p.ID,
		ProductID:     product.ID,
		Quantity:      in.Quantity,
		TotalPrice:    in.TotalPrice.Round(commissionPrecision),
		TransactionID: in.TransactionID,
		Status:        StatusPending,
		SoldAt:        s.now().UTC(),
	}
	if err := s.repo.CreateSale(ctx, sale); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, ErrDuplicateTxn
		}
		return nil, err
	}

	obs.RecordSaleTransition(string(StatusPending))
	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionSaleRecorded,
		ActorID:    &p.ID,
		TenantID:   &sale.TenantID,
		TargetType: "sale",
		TargetID:   fmt.Sprint(sale.ID),
		Details:    map[string]any{"transactionId": sale.TransactionID, "totalPrice": sale.TotalPrice.StringFixed(2)},
	})
	s.publish("sale.recorded", sale)
	return sale, nil
}

// Approve resolves a pending sale as approved with the employee's commission.
func (s *Service) Approve(ctx context.Context, p auth.Principal, id int64, notes string) (*Sale, error) {
	return s.resolve(ctx, p, id, StatusApproved, notes)
}

// Reject resolves a pending sale as rejected.
func (s *Service) Reject(ctx context.Context, p auth.Principal, id int64, notes string) (*Sale, error) {
	return s.resolve(ctx, p, id, StatusRejected, notes)
}

func (s *Service) resolve(ctx context.Context, p auth.Principal, id int64, to Status, notes string) (*Sale, error) {
	sale, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if sale.Status != StatusPending {
		return nil, ErrNotPending
	}
	if err := s.tenants.EnsureActive(ctx, sale.TenantID); err != nil {
		return nil, err
	}

	res := Resolution{SaleID: sale.ID, Status: to, ApproverID: p.ID, At: s.now().UTC()}
	if n := strings.TrimSpace(notes); n != "" {
		res.Notes = &n
	}
	if to == StatusApproved {
		raw, ok, err := s.rates.CommissionRate(ctx, sale.TenantID, sale.EmployeeID)
		if err != nil {
			return nil, err
		}
		c := Commission(sale.TotalPrice, raw, ok)
		res.Commission = &c
	}

	// The write itself re-checks pending, so of two concurrent resolutions
	// exactly one succeeds.
	updated, err := s.repo.ResolveSale(ctx, res)
	if err != nil {
		return nil, err
	}

	obs.RecordSaleTransition(string(to))
	action := audit.ActionSaleApproved
	if to == StatusRejected {
		action = audit.ActionSaleRejected
	}
	details := map[string]any{"transactionId": updated.TransactionID}
	if updated.CommissionAmount != nil {
		details["commission"] = updated.CommissionAmount.StringFixed(2)
	}
	s.audit.Record(ctx, audit.Entry{
		Action:     action,
		ActorID:    &p.ID,
		TenantID:   &updated.TenantID,
		TargetType: "sale",
		TargetID:   fmt.Sprint(updated.ID),
		Details:    details,
	})
	s.notifyEmployee(ctx, updated)
	s.publish("sale."+string(to), updated)
	return updated, nil
}

func (s *Service) publish(kind string, sale *Sale) {
	if s.events == nil {
		return
	}
	evt := stream.SaleEvent{
		Type:          kind,
		SaleID:        sale.ID,
		TenantID:      sale.TenantID,
		EmployeeID:    sale.EmployeeID,
		Status:        string(sale.Status),
		TotalPrice:    sale.TotalPrice.StringFixed(2),
		TransactionID: sale.TransactionID,
		Timestamp:     s.now().UTC(),
	}
	if sale.CommissionAmount != nil {
		evt.Commission = sale.CommissionAmount.StringFixed(2)
	}
	s.events.Publish(evt)
}

func (s *Service) notifyEmployee(ctx context.Context, sale *Sale) {
	user, err := s.users.GetUser(ctx, sale.EmployeeID)
	if err != nil {
		obs.Logger().Warn("sale notification skipped", zap.Int64("sale_id", sale.ID), zap.Error(err))
		return
	}
	if user.Email == "" {
		return
	}
	template := notify.TemplateSaleApproved
	if sale.Status == StatusRejected {
		template = notify.TemplateSaleRejected
	}
	payload := map[string]any{
		"transactionId": sale.TransactionID,
		"totalPrice":    sale.TotalPrice.StringFixed(2),
	}
	if sale.CommissionAmount != nil {
		payload["commission"] = sale.CommissionAmount.StringFixed(2)
	}
	if sale.ApprovalNotes != nil {
		payload["notes"] = *sale.ApprovalNotes
	}
	s.outbox.Enqueue(ctx, notify.Intent{
		Channel:   notify.ChannelEmail,
		Recipient: user.Email,
		Template:  template,
		Payload:   payload,
		TenantID:  &sale.TenantID,
	})
}

// Get fetches a sale, then checks the caller's tenant owns it.
func (s *Service) Get(ctx context.Context, p auth.Principal, id int64) (*Sale, error) {
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := tenancy.CheckScope(p, sale.TenantID); err != nil {
		return nil, err
	}
	return sale, nil
}

// List returns the sales visible to p, narrowed by f.
func (s *Service) List(ctx context.Context, p auth.Principal, f Filter) ([]Sale, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.FieldErrors{"status": "must be pending, approved or rejected"}
	}
	tc, err := tenancy.Resolve(p, tenancy.Request{Requested: f.TenantID})
	if err != nil {
		return nil, err
	}
	f.TenantID = tc.Filter()
	return s.repo.ListSales(ctx, f)
}

// Mine lists the sales the calling employee recorded.
func (s *Service) Mine(ctx context.Context, p auth.Principal, status Status) ([]Sale, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.FieldErrors{"status": "must be pending, approved or rejected"}
	}
	id := p.ID
	return s.repo.ListSales(ctx, Filter{EmployeeID: &id, TenantID: p.TenantID, Status: status})
}

func (s *Service) Summary(ctx context.Context, p auth.Principal, requested *int64) (Summary, error) {
	tc, err := tenancy.Resolve(p, tenancy.Request{Requested: requested})
	if err != nil {
		return Summary{}, err
	}
	return s.repo.SummarizeSales(ctx, tc.Filter())
}
