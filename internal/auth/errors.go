package auth

import (
	"fmt"

	"salonhub.io/internal/apperr"
)

var (
	ErrInvalidCredentials   = fmt.Errorf("%w: invalid email or password", apperr.ErrUnauthenticated)
	ErrSecondFactorRequired = fmt.Errorf("%w: second factor required", apperr.ErrUnauthenticated)
	ErrInvalidSecondFactor  = fmt.Errorf("%w: invalid second factor code", apperr.ErrUnauthenticated)
	ErrInvalidToken         = fmt.Errorf("%w: invalid or expired token", apperr.ErrUnauthenticated)
	ErrInsufficientRole     = fmt.Errorf("%w: insufficient role", apperr.ErrForbidden)
	ErrEmailTaken           = fmt.Errorf("%w: email already registered", apperr.ErrConflict)
	ErrNotFound             = fmt.Errorf("%w: user not found", apperr.ErrNotFound)
)
