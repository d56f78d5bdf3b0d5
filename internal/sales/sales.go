// Package sales implements the sale approval workflow: employees record
// sales as pending, managers approve (earning the employee a commission) or
// reject them. Status only moves out of pending, once.
package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"salonhub.io/internal/apperr"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

func (s Status) Terminal() bool { return s == StatusApproved || s == StatusRejected }

var (
	ErrSaleNotFound     = fmt.Errorf("%w: sale not found", apperr.ErrNotFound)
	ErrNotPending       = fmt.Errorf("%w: sale is not pending", apperr.ErrInvalidState)
	ErrDuplicateTxn     = fmt.Errorf("%w: transaction already recorded", apperr.ErrConflict)
	DefaultCommission   = decimal.RequireFromString("0.10")
	commissionPrecision = int32(2)
)

// Sale is a recorded sale. CommissionAmount is set only when approved and
// ApproverID only once resolved.
type Sale struct {
	ID               int64            `json:"id"`
	TenantID         int64            `json:"tenantId"`
	StoreID          int64            `json:"storeId"`
	EmployeeID       int64            `json:"employeeId"`
	ProductID        int64            `json:"productId"`
	Quantity         int              `json:"quantity"`
	TotalPrice       decimal.Decimal  `json:"totalPrice"`
	TransactionID    string           `json:"transactionId"`
	Status           Status           `json:"status"`
	ApproverID       *int64           `json:"approverId"`
	CommissionAmount *decimal.Decimal `json:"commissionAmount"`
	ApprovalNotes    *string          `json:"approvalNotes"`
	SoldAt           time.Time        `json:"soldAt"`
	ResolvedAt       *time.Time       `json:"resolvedAt"`
}

// Filter narrows ListSales. Zero fields do not filter.
type Filter struct {
	TenantID   *int64
	Status     Status
	EmployeeID *int64
	StoreID    *int64
	From       time.Time
	To         time.Time
	Limit      int
}

// Resolution moves a pending sale to a terminal status.
type Resolution struct {
	SaleID     int64
	Status     Status
	ApproverID int64
	Commission *decimal.Decimal
	Notes      *string
	At         time.Time
}

// Summary aggregates sales of one tenant, or all tenants.
type Summary struct {
	Pending         int             `json:"pending"`
	Approved        int             `json:"approved"`
	Rejected        int             `json:"rejected"`
	ApprovedRevenue decimal.Decimal `json:"approvedRevenue"`
	CommissionTotal decimal.Decimal `json:"commissionTotal"`
}

// Repository persists sales.
type Repository interface {
	CreateSale(ctx context.Context, s *Sale) error
	GetSale(ctx context.Context, id int64) (*Sale, error)
	ListSales(ctx context.Context, f Filter) ([]Sale, error)
	// ResolveSale applies r in one conditional write that matches only a
	// pending sale. It returns ErrNotPending when nothing matched.
	ResolveSale(ctx context.Context, r Resolution) (*Sale, error)
	SummarizeSales(ctx context.Context, tenantID *int64) (Summary, error)
}

// Commission computes totalPrice x rate rounded to cents. Any stored rate
// that parses is used as is; range checks happen when the employee is
// saved. A missing or unparseable rate falls back to DefaultCommission.
func Commission(total decimal.Decimal, rawRate string, ok bool) decimal.Decimal {
	rate := DefaultCommission
	if ok {
		if r, err := decimal.NewFromString(rawRate); err == nil {
			rate = r
		}
	}
	return total.Mul(rate).Round(commissionPrecision)
}
