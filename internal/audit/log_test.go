package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"salonhub.io/internal/obs"
)

type stubStore struct {
	mu      sync.Mutex
	entries []Entry
	err     error
	filter  Filter
}

func (s *stubStore) AppendAudit(ctx context.Context, e *Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, *e)
	return nil
}

func (s *stubStore) ListAudit(_ context.Context, f Filter) ([]Entry, error) {
	s.filter = f
	return s.entries, nil
}

func TestRecordEnrichesFromContext(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	defer obs.SetLogger(zap.New(core))()

	store := &stubStore{}
	rec := NewRecorder(store)

	actor := int64(42)
	ctx := WithMeta(context.Background(), Meta{RequestID: "req-123", IP: "10.0.0.1"})
	rec.Record(ctx, Entry{Action: ActionLoginSuccess, ActorID: &actor})
	rec.Close()

	require.Len(t, store.entries, 1)
	got := store.entries[0]
	assert.Equal(t, "req-123", got.RequestID)
	assert.Equal(t, "10.0.0.1", got.IP)
	assert.False(t, got.CreatedAt.IsZero())

	mirrored := logs.FilterField(zap.String("type", "audit")).All()
	require.Len(t, mirrored, 1)
	assert.Equal(t, ActionLoginSuccess, mirrored[0].ContextMap()["event"])
	assert.Equal(t, int64(42), mirrored[0].ContextMap()["user_id"])
}

func TestRecordOutlivesCancelledContext(t *testing.T) {
	store := &stubStore{}
	rec := NewRecorder(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.Record(ctx, Entry{Action: ActionSaleApproved})
	rec.Close()

	assert.Len(t, store.entries, 1)
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	defer obs.SetLogger(zap.New(core))()

	rec := NewRecorder(&stubStore{err: errors.New("db down")})
	rec.Record(context.Background(), Entry{Action: ActionLoginFailed})
	rec.Close()

	assert.Equal(t, 1, logs.FilterMessage("audit write failed").Len())
}

func TestListClampsLimit(t *testing.T) {
	store := &stubStore{}
	rec := NewRecorder(store)

	_, err := rec.List(context.Background(), Filter{Limit: 5000, Action: " login_failed "})
	require.NoError(t, err)
	assert.Equal(t, MaxListLimit, store.filter.Limit)
	assert.Equal(t, "login_failed", store.filter.Action)

	_, err = rec.List(context.Background(), Filter{Limit: 10, From: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, 10, store.filter.Limit)
}

func TestWithMetaIgnoresEmpty(t *testing.T) {
	ctx := WithMeta(context.Background(), Meta{RequestID: "  "})
	assert.Equal(t, Meta{}, MetaFromContext(ctx))
}
