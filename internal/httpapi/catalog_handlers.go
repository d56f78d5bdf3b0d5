package httpapi

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"salonhub.io/internal/retail"
	"salonhub.io/internal/staff"
)

// Create and update share one payload; on update absent fields are kept.

type employeeRequest struct {
	TenantID       *int64  `json:"tenantId" validate:"omitempty,gt=0"`
	StoreID        *int64  `json:"storeId" validate:"omitempty,gt=0"`
	UserID         *int64  `json:"userId" validate:"omitempty,gt=0"`
	Name           *string `json:"name"`
	Email          *string `json:"email" validate:"omitempty,email"`
	Contact        *string `json:"contact"`
	Position       *string `json:"position"`
	CommissionRate *string `json:"commissionRate"`
}

func (req employeeRequest) input() staff.Input {
	return staff.Input{
		TenantID:       req.TenantID,
		StoreID:        req.StoreID,
		UserID:         req.UserID,
		Name:           req.Name,
		Email:          req.Email,
		Contact:        req.Contact,
		Position:       req.Position,
		CommissionRate: req.CommissionRate,
	}
}

type storeRequest struct {
	TenantID *int64  `json:"tenantId" validate:"omitempty,gt=0"`
	Name     *string `json:"name"`
	Location *string `json:"location"`
	Notes    *string `json:"notes"`
}

type productRequest struct {
	TenantID    *int64           `json:"tenantId" validate:"omitempty,gt=0"`
	Name        *string          `json:"name"`
	Category    *string          `json:"category"`
	SKU         *string          `json:"sku"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Description *string          `json:"description"`
	IsActive    *bool            `json:"isActive"`
}

func (req productRequest) input() retail.ProductInput {
	return retail.ProductInput{
		TenantID:    req.TenantID,
		Name:        req.Name,
		Category:    req.Category,
		SKU:         req.SKU,
		Price:       req.Price,
		Stock:       req.Stock,
		Description: req.Description,
		Active:      req.IsActive,
	}
}

// --- employees ---

func (a *API) listEmployees(w http.ResponseWriter, r *http.Request) {
	requested, err := queryInt64(r, "tenantId")
	if err != nil {
		fail(w, r, err)
		return
	}
	list, err := a.deps.Staff.List(r.Context(), principal(r), requested)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) getEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	e, err := a.deps.Staff.Get(r.Context(), principal(r), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (a *API) createEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	e, err := a.deps.Staff.Create(r.Context(), principal(r), req.input())
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/employees/%d", e.ID))
	writeJSON(w, http.StatusCreated, e)
}

func (a *API) updateEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req employeeRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	e, err := a.deps.Staff.Update(r.Context(), principal(r), id, req.input())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// --- stores ---

func (a *API) listStores(w http.ResponseWriter, r *http.Request) {
	requested, err := queryInt64(r, "tenantId")
	if err != nil {
		fail(w, r, err)
		return
	}
	list, err := a.deps.Retail.ListStores(r.Context(), principal(r), requested)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) getStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	st, err := a.deps.Retail.GetStore(r.Context(), principal(r), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) createStore(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	st, err := a.deps.Retail.CreateStore(r.Context(), principal(r), retail.StoreInput(req))
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/stores/%d", st.ID))
	writeJSON(w, http.StatusCreated, st)
}

func (a *API) updateStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req storeRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	st, err := a.deps.Retail.UpdateStore(r.Context(), principal(r), id, retail.StoreInput(req))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// --- products ---

func (a *API) listProducts(w http.ResponseWriter, r *http.Request) {
	requested, err := queryInt64(r, "tenantId")
	if err != nil {
		fail(w, r, err)
		return
	}
	list, err := a.deps.Retail.ListProducts(r.Context(), principal(r), requested)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	p, err := a.deps.Retail.GetProduct(r.Context(), principal(r), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	p, err := a.deps.Retail.CreateProduct(r.Context(), principal(r), req.input())
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/products/%d", p.ID))
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	p, err := a.deps.Retail.UpdateProduct(r.Context(), principal(r), id, req.input())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
