package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/netip"
	"time"

	"salonhub.io/internal/audit"
	"salonhub.io/internal/auth"
	"salonhub.io/internal/obs"
	"salonhub.io/internal/ratelimit"
	"salonhub.io/internal/retail"
	"salonhub.io/internal/sales"
	"salonhub.io/internal/staff"
	"salonhub.io/internal/stream"
	"salonhub.io/internal/tenant"
)

// ReadyChecker reports whether the backing store accepts queries.
type ReadyChecker interface {
	Ping(ctx context.Context) error
}

// AuditLog lists audit entries.
type AuditLog interface {
	List(ctx context.Context, f audit.Filter) ([]audit.Entry, error)
}

// Deps carries the services behind the HTTP layer.
type Deps struct {
	Auth    *auth.Service
	Tenants *tenant.Service
	Staff   *staff.Service
	Retail  *retail.Service
	Sales   *sales.Service
	Audit   AuditLog
	Ready   ReadyChecker
	// Events feeds GET /v1/sales/events; nil disables streaming.
	Events *stream.Hub

	// Limiter applies to every request per client IP; LoginLimiter only to
	// login attempts. Either may be nil.
	Limiter      ratelimit.Limiter
	LoginLimiter ratelimit.Limiter

	// TrustedProxies may set X-Forwarded-For; empty means the TCP peer is
	// always the client.
	TrustedProxies []netip.Prefix

	CORSOrigins  []string
	MaxBodyBytes int64
	Version      string
}

// API is the HTTP layer.
type API struct {
	mux  *http.ServeMux
	deps Deps
}

func New(d Deps) *API {
	if d.MaxBodyBytes <= 0 {
		d.MaxBodyBytes = 1 << 20
	}
	a := &API{mux: http.NewServeMux(), deps: d}
	a.routes()
	return a
}

func (a *API) routes() {
	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.HandleFunc("GET /v1/info", a.Info)
	a.mux.Handle("GET /metrics", obs.Handler())

	// public
	a.mux.Handle("POST /v1/auth/login", a.loginLimited(http.HandlerFunc(a.login)))
	a.mux.HandleFunc("POST /v1/auth/register", a.registerCustomer)
	a.mux.HandleFunc("POST /v1/tenants/register", a.registerTenant)
	a.mux.HandleFunc("GET /v1/tenants/public/contact", a.publicContact)

	a.protect("GET /v1/auth/me", auth.CategorySelf, a.me)
	a.protect("POST /v1/auth/2fa/enable", auth.CategorySecondFactor, a.enableSecondFactor)
	a.protect("POST /v1/auth/2fa/verify", auth.CategorySecondFactor, a.verifySecondFactor)
	a.protect("POST /v1/users", auth.CategoryUserCreate, a.createUser)

	a.protect("GET /v1/tenants", auth.CategoryTenantAdmin, a.listTenants)
	a.protect("POST /v1/tenants", auth.CategoryTenantAdmin, a.createTenant)
	a.protect("GET /v1/tenants/me", auth.CategoryTenantCurrent, a.currentTenant)
	a.protect("PUT /v1/tenants/me", auth.CategoryTenantCurrent, a.updateCurrentTenant)
	a.protect("GET /v1/tenants/{id}", auth.CategoryTenantView, a.getTenant)
	a.protect("PUT /v1/tenants/{id}", auth.CategoryTenantAdmin, a.updateTenant)
	a.protect("PUT /v1/tenants/{id}/features", auth.CategoryTenantAdmin, a.setTenantFeatures)
	a.protect("DELETE /v1/tenants/{id}", auth.CategoryTenantAdmin, a.deactivateTenant)

	a.protect("GET /v1/employees", auth.CategoryEmployeeRead, a.listEmployees)
	a.protect("GET /v1/employees/{id}", auth.CategoryEmployeeRead, a.getEmployee)
	a.protect("POST /v1/employees", auth.CategoryEmployeeWrite, a.createEmployee)
	a.protect("PUT /v1/employees/{id}", auth.CategoryEmployeeWrite, a.updateEmployee)

	a.protect("GET /v1/stores", auth.CategoryStoreRead, a.listStores)
	a.protect("GET /v1/stores/{id}", auth.CategoryStoreRead, a.getStore)
	a.protect("POST /v1/stores", auth.CategoryStoreWrite, a.createStore)
	a.protect("PUT /v1/stores/{id}", auth.CategoryStoreWrite, a.updateStore)

	a.protect("GET /v1/products", auth.CategoryProductRead, a.listProducts)
	a.protect("GET /v1/products/{id}", auth.CategoryProductRead, a.getProduct)
	a.protect("POST /v1/products", auth.CategoryProductWrite, a.createProduct)
	a.protect("PUT /v1/products/{id}", auth.CategoryProductWrite, a.updateProduct)

	a.protect("POST /v1/sales/record", auth.CategorySaleRecord, a.recordSale)
	a.protect("GET /v1/sales/mine", auth.CategorySaleOwn, a.mySales)
	a.protect("GET /v1/sales/summary", auth.CategorySaleRead, a.salesSummary)
	a.protect("GET /v1/sales/events", auth.CategorySaleRead, a.saleEvents)
	a.protect("GET /v1/sales", auth.CategorySaleRead, a.listSales)
	a.protect("GET /v1/sales/{id}", auth.CategorySaleRead, a.getSale)
	a.protect("PATCH /v1/sales/{id}/approve", auth.CategorySaleResolve, a.approveSale)
	a.protect("PATCH /v1/sales/{id}/reject", auth.CategorySaleResolve, a.rejectSale)

	a.protect("GET /v1/audit-logs", auth.CategoryAuditRead, a.listAudit)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "route not found")
	})
}

// protect registers h behind authentication and the role check for c.
func (a *API) protect(pattern string, c auth.Category, h http.HandlerFunc) {
	a.mux.Handle(pattern, a.authenticate(requireRoles(c, h)))
}

// Handler returns the full middleware chain around the router.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = RateLimit(h, a.deps.Limiter)
	h = MaxBodyBytes(h, a.deps.MaxBodyBytes)
	h = CORS(h, a.deps.CORSOrigins)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	h = RealIP(h, a.deps.TrustedProxies)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "salonhub-api",
		"version": a.deps.Version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if a.deps.Ready != nil {
		if err := a.deps.Ready.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "salonhub-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.deps.Version,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
