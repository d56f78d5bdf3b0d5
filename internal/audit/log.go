package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"salonhub.io/internal/obs"
)

const defaultWriteTimeout = 5 * time.Second

// Recorder writes entries in the background. A failed write is logged and
// never reaches the caller.
type Recorder struct {
	store   Store
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, timeout: defaultWriteTimeout, now: time.Now}
}

// Record enriches e with request metadata from ctx and persists it
// asynchronously. The write outlives ctx cancellation.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil {
		return
	}
	meta := MetaFromContext(ctx)
	if e.RequestID == "" {
		e.RequestID = meta.RequestID
	}
	if e.IP == "" {
		e.IP = meta.IP
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now().UTC()
	}
	logEntry(e)
	if r.store == nil {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		if err := r.store.AppendAudit(wctx, &e); err != nil {
			obs.Logger().Warn("audit write failed",
				zap.String("action", e.Action),
				zap.String("request_id", e.RequestID),
				zap.Error(err))
		}
	}()
}

// Close waits for in-flight writes.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.wg.Wait()
}

// List returns entries matching f, newest first.
func (r *Recorder) List(ctx context.Context, f Filter) ([]Entry, error) {
	return r.store.ListAudit(ctx, f.Normalize())
}

func logEntry(e Entry) {
	fields := []zap.Field{
		zap.String("type", "audit"),
		zap.String("event", e.Action),
	}
	if e.RequestID != "" {
		fields = append(fields, zap.String("request_id", e.RequestID))
	}
	if e.ActorID != nil {
		fields = append(fields, zap.Int64("user_id", *e.ActorID))
	}
	if e.TenantID != nil {
		fields = append(fields, zap.Int64("tenant_id", *e.TenantID))
	}
	if len(e.Details) > 0 {
		fields = append(fields, zap.Any("fields", e.Details))
	}
	obs.Logger().Info("audit", fields...)
}
