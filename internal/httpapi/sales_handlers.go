package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"salonhub.io/internal/apperr"
	"salonhub.io/internal/audit"
	"salonhub.io/internal/auth"
	"salonhub.io/internal/sales"
	"salonhub.io/internal/tenancy"
)

const defaultSalesLimit = 100

type recordSaleRequest struct {
	ProductID     int64           `json:"productId" validate:"required,gt=0"`
	StoreID       int64           `json:"storeId" validate:"required,gt=0"`
	Quantity      int             `json:"quantity" validate:"required,gt=0"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	TransactionID string          `json:"transactionId" validate:"required,max=128"`
}

type resolveSaleRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

func (a *API) recordSale(w http.ResponseWriter, r *http.Request) {
	var req recordSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	sale, err := a.deps.Sales.Record(r.Context(), principal(r), sales.RecordInput{
		ProductID:     req.ProductID,
		StoreID:       req.StoreID,
		Quantity:      req.Quantity,
		TotalPrice:    req.TotalPrice,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"sale": sale})
}

func (a *API) approveSale(w http.ResponseWriter, r *http.Request) {
	a.resolveSale(w, r, a.deps.Sales.Approve)
}

func (a *API) rejectSale(w http.ResponseWriter, r *http.Request) {
	a.resolveSale(w, r, a.deps.Sales.Reject)
}

type resolveFunc func(ctx context.Context, p auth.Principal, id int64, notes string) (*sales.Sale, error)

// resolveSale accepts an empty body as "no notes".
func (a *API) resolveSale(w http.ResponseWriter, r *http.Request, fn resolveFunc) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req resolveSaleRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			fail(w, r, err)
			return
		}
	}
	sale, err := fn(r.Context(), principal(r), id, req.Notes)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
}

func (a *API) getSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	sale, err := a.deps.Sales.Get(r.Context(), principal(r), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (a *API) listSales(w http.ResponseWriter, r *http.Request) {
	f, err := salesFilter(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	list, err := a.deps.Sales.List(r.Context(), principal(r), f)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) mySales(w http.ResponseWriter, r *http.Request) {
	status := sales.Status(strings.TrimSpace(r.URL.Query().Get("status")))
	list, err := a.deps.Sales.Mine(r.Context(), principal(r), status)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) salesSummary(w http.ResponseWriter, r *http.Request) {
	requested, err := queryInt64(r, "tenantId")
	if err != nil {
		fail(w, r, err)
		return
	}
	sum, err := a.deps.Sales.Summary(r.Context(), principal(r), requested)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func salesFilter(r *http.Request) (sales.Filter, error) {
	var (
		f   sales.Filter
		err error
	)
	fe := apperr.FieldErrors{}
	if f.TenantID, err = queryInt64(r, "tenantId"); err != nil {
		fe.Add("tenantId", "must be a positive integer")
	}
	if f.EmployeeID, err = queryInt64(r, "employeeId"); err != nil {
		fe.Add("employeeId", "must be a positive integer")
	}
	if f.StoreID, err = queryInt64(r, "storeId"); err != nil {
		fe.Add("storeId", "must be a positive integer")
	}
	if f.From, err = queryTime(r, "from"); err != nil {
		fe.Add("from", "must be an RFC 3339 timestamp or YYYY-MM-DD date")
	}
	if f.To, err = queryTime(r, "to"); err != nil {
		fe.Add("to", "must be an RFC 3339 timestamp or YYYY-MM-DD date")
	}
	if f.Limit, err = queryLimit(r, defaultSalesLimit, 1000); err != nil {
		fe.Add("limit", "must be between 1 and 1000")
	}
	f.Status = sales.Status(strings.TrimSpace(r.URL.Query().Get("status")))
	return f, fe.OrNil()
}

// --- audit ---

func (a *API) listAudit(w http.ResponseWriter, r *http.Request) {
	fe := apperr.FieldErrors{}
	requested, err := queryInt64(r, "tenantId")
	if err != nil {
		fe.Add("tenantId", "must be a positive integer")
	}
	actor, err := queryInt64(r, "userId")
	if err != nil {
		fe.Add("userId", "must be a positive integer")
	}
	from, err := queryTime(r, "from")
	if err != nil {
		fe.Add("from", "must be an RFC 3339 timestamp or YYYY-MM-DD date")
	}
	to, err := queryTime(r, "to")
	if err != nil {
		fe.Add("to", "must be an RFC 3339 timestamp or YYYY-MM-DD date")
	}
	limit, err := queryLimit(r, audit.MaxListLimit, audit.MaxListLimit)
	if err != nil {
		fe.Add("limit", "must be between 1 and 200")
	}
	if err := fe.OrNil(); err != nil {
		fail(w, r, err)
		return
	}

	tc, err := tenancy.Resolve(principal(r), tenancy.Request{Requested: requested})
	if err != nil {
		fail(w, r, err)
		return
	}
	entries, err := a.deps.Audit.List(r.Context(), audit.Filter{
		TenantID: tc.Filter(),
		Action:   r.URL.Query().Get("action"),
		ActorID:  actor,
		From:     from,
		To:       to,
		Limit:    limit,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
