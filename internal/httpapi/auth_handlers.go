package httpapi

import (
	"fmt"
	"net/http"

	"salonhub.io/internal/apperr"
	"salonhub.io/internal/auth"
)

type loginRequest struct {
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required"`
	TwoFactorToken string `json:"twoFactorToken"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role"`
	TenantID *int64 `json:"tenantId" validate:"omitempty,gt=0"`
}

type secondFactorRequest struct {
	Token string `json:"token" validate:"required"`
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	session, err := a.deps.Auth.Authenticate(r.Context(), req.Email, req.Password, req.TwoFactorToken)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// registerCustomer is public self-signup; only customers can be created.
func (a *API) registerCustomer(w http.ResponseWriter, r *http.Request) {
	in, err := decodeRegister(r, auth.RoleCustomer)
	if err != nil {
		fail(w, r, err)
		return
	}
	user, err := a.deps.Auth.Register(r.Context(), nil, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	in, err := decodeRegister(r, auth.RoleUnknown)
	if err != nil {
		fail(w, r, err)
		return
	}
	p := principal(r)
	user, err := a.deps.Auth.Register(r.Context(), &p, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/users/%d", user.ID))
	writeJSON(w, http.StatusCreated, user)
}

// decodeRegister parses the user payload. def is used when no role is given;
// RoleUnknown makes the role mandatory.
func decodeRegister(r *http.Request, def auth.Role) (auth.RegisterInput, error) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		return auth.RegisterInput{}, err
	}
	role := def
	if req.Role != "" {
		parsed, err := auth.ParseRole(req.Role)
		if err != nil {
			return auth.RegisterInput{}, apperr.FieldErrors{"role": "is invalid"}
		}
		role = parsed
	}
	if !role.Valid() {
		return auth.RegisterInput{}, apperr.FieldErrors{"role": "is required"}
	}
	return auth.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
		TenantID: req.TenantID,
	}, nil
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	user, err := a.deps.Auth.Me(r.Context(), principal(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) enableSecondFactor(w http.ResponseWriter, r *http.Request) {
	enr, err := a.deps.Auth.EnrollSecondFactor(r.Context(), principal(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enr)
}

func (a *API) verifySecondFactor(w http.ResponseWriter, r *http.Request) {
	var req secondFactorRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if err := a.deps.Auth.ConfirmSecondFactor(r.Context(), principal(r), req.Token); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"twoFactorEnabled": true})
}
