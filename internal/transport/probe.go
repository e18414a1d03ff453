package transport

import (
	"context"
	"net/http"
	"time"

	"campsync/internal/httpclient"
)

// RunProbe polls the status endpoint on a fixed period and reports
// online/offline flips through the OnOnline callback. It blocks until the
// context is cancelled. The probe drives an indicator only; it takes no part
// in the reconnect state machine.
func (t *Transport) RunProbe(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.ProbeInterval)
	defer ticker.Stop()

	known := false
	online := false
	for {
		current := t.probeOnce(ctx)
		t.observer.SetOnline(current)
		if !known || current != online {
			known = true
			online = current
			if t.callbacks.OnOnline != nil {
				t.callbacks.OnOnline(online)
			}
			if online {
				t.logger.Info("workflow backend online")
			} else {
				t.logger.Warn("workflow backend offline")
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (t *Transport) probeOnce(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cfg.BaseURL+t.cfg.StatusPath, nil)
	if err != nil {
		return false
	}
	// Deliberately not the breaker-wrapped client: probe failures during an
	// outage must not open the circuit the fallback send depends on.
	resp, err := t.probeClient.Do(req)
	if err != nil {
		return false
	}
	// Drain so the keep-alive connection is reusable.
	_, _ = httpclient.ReadAllWithLimit(resp.Body, maxResponseBytes)
	resp.Body.Close()
	return resp.StatusCode < http.StatusBadRequest
}
