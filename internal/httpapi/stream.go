package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"salonhub.io/internal/tenancy"
)

const streamHeartbeat = 25 * time.Second

// saleEvents streams sale transitions as Server-Sent Events. Tenant users
// only see their own tenant; a SuperAdmin sees all unless tenantId is given.
func (a *API) saleEvents(w http.ResponseWriter, r *http.Request) {
	if a.deps.Events == nil {
		writeError(w, r, http.StatusServiceUnavailable, "streaming disabled")
		return
	}
	requested, err := queryInt64(r, "tenantId")
	if err != nil {
		fail(w, r, err)
		return
	}
	tc, err := tenancy.Resolve(principal(r), tenancy.Request{Requested: requested})
	if err != nil {
		fail(w, r, err)
		return
	}

	// Subscribed before the first flush.
	ch := a.deps.Events.Subscribe(r.Context(), tc.Filter())

	rc := http.NewResponseController(w)
	// The server write timeout would otherwise cut the stream.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(": stream started\n\n"))
	if err := rc.Flush(); err != nil {
		return
	}

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			_, _ = w.Write([]byte("event: " + evt.Type + "\ndata: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
		case <-heartbeat.C:
			_, _ = w.Write([]byte(": ping\n\n"))
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
