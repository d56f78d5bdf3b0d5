package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"salonhub.io/internal/tenant"
)

type tenantRegisterRequest struct {
	Name          string `json:"name" validate:"required"`
	Subdomain     string `json:"subdomain" validate:"required"`
	Plan          string `json:"plan" validate:"required,oneof=monthly commission"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	AdminUsername string `json:"adminUsername" validate:"required"`
	AdminEmail    string `json:"adminEmail" validate:"required,email"`
	AdminPassword string `json:"adminPassword" validate:"required,min=8"`
}

type tenantCreateRequest struct {
	Name      string `json:"name" validate:"required"`
	Subdomain string `json:"subdomain" validate:"required"`
	Plan      string `json:"plan" validate:"required,oneof=monthly commission"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	MapURL    string `json:"mapUrl"`
}

type tenantUpdateRequest struct {
	Name     *string        `json:"name" validate:"omitempty,min=1"`
	Plan     *string        `json:"plan" validate:"omitempty,oneof=monthly commission"`
	IsActive *bool          `json:"isActive"`
	Email    *string        `json:"email" validate:"omitempty,email"`
	Phone    *string        `json:"phone"`
	Address  *string        `json:"address"`
	MapURL   *string        `json:"mapUrl"`
	Features map[string]any `json:"features"`
}

func (req tenantUpdateRequest) input() tenant.UpdateInput {
	in := tenant.UpdateInput{
		Name:     req.Name,
		Active:   req.IsActive,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
		MapURL:   req.MapURL,
		Features: req.Features,
	}
	if req.Plan != nil {
		plan := tenant.Plan(*req.Plan)
		in.Plan = &plan
	}
	return in
}

type featuresRequest struct {
	Features map[string]any `json:"features" validate:"required"`
}

// registerTenant is the public signup creating a tenant and its first admin.
func (a *API) registerTenant(w http.ResponseWriter, r *http.Request) {
	var req tenantRegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	t, admin, err := a.deps.Tenants.Register(r.Context(), tenant.RegisterInput{
		Name:          req.Name,
		Subdomain:     req.Subdomain,
		Plan:          tenant.Plan(req.Plan),
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		AdminUsername: req.AdminUsername,
		AdminEmail:    req.AdminEmail,
		AdminPassword: req.AdminPassword,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/tenants/%d", t.ID))
	writeJSON(w, http.StatusCreated, map[string]any{
		"tenant":    t,
		"adminUser": admin,
	})
}

func (a *API) publicContact(w http.ResponseWriter, r *http.Request) {
	id, err := queryInt64(r, "tenantId")
	if err != nil {
		fail(w, r, err)
		return
	}
	var tenantID int64
	if id != nil {
		tenantID = *id
	}
	contact, err := a.deps.Tenants.PublicContact(r.Context(), strings.TrimSpace(r.URL.Query().Get("subdomain")), tenantID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

func (a *API) listTenants(w http.ResponseWriter, r *http.Request) {
	list, err := a.deps.Tenants.List(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) createTenant(w http.ResponseWriter, r *http.Request) {
	var req tenantCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	t, err := a.deps.Tenants.Create(r.Context(), principal(r), tenant.CreateInput{
		Name:      req.Name,
		Subdomain: req.Subdomain,
		Plan:      tenant.Plan(req.Plan),
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		MapURL:    req.MapURL,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/tenants/%d", t.ID))
	writeJSON(w, http.StatusCreated, t)
}

func (a *API) currentTenant(w http.ResponseWriter, r *http.Request) {
	t, err := a.deps.Tenants.Current(r.Context(), principal(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) updateCurrentTenant(w http.ResponseWriter, r *http.Request) {
	var req tenantUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	t, err := a.deps.Tenants.UpdateCurrent(r.Context(), principal(r), req.input())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) getTenant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	t, err := a.deps.Tenants.Get(r.Context(), principal(r), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) updateTenant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req tenantUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	t, err := a.deps.Tenants.Update(r.Context(), principal(r), id, req.input())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) setTenantFeatures(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req featuresRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	t, err := a.deps.Tenants.SetFeatures(r.Context(), principal(r), id, req.Features)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) deactivateTenant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	t, err := a.deps.Tenants.Deactivate(r.Context(), principal(r), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
