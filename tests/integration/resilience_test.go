//go:build integration
// +build integration

package integration

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratocompute/stratos/backend/internal/infrastructure/resilience"
	"github.com/stratocompute/stratos/backend/tests/helpers/testutil"
)

// TestDisplayOutageIntegration runs the service against a compositor
// that answers every stats request with 503.
func TestDisplayOutageIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping display outage integration test")
	}

	var hits atomic.Int32
	compositor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "compositor crashed", http.StatusServiceUnavailable)
	}))
	defer compositor.Close()

	cfg := testutil.TestConfig()
	cfg.Display.URL = compositor.URL
	cfg.Display.Timeout = 2 * time.Second
	cfg.Display.RPS = 0

	srv := testutil.SetupServerWith(t, cfg)
	router := srv.Router()

	t.Run("overview stays healthy without stats", func(t *testing.T) {
		w, body := testutil.DoJSON(t, router, "GET", "/memory/overview", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, body, "display")
		assert.Contains(t, body, "kernel_heap")
	})

	t.Run("repeated outages open the breaker", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			w, _ := testutil.DoJSON(t, router, "GET", "/memory/overview", nil)
			require.Equal(t, http.StatusOK, w.Code)
		}

		_, body := testutil.DoJSON(t, router, "GET", "/status", nil)
		assert.Equal(t, "open", body["display_breaker"])
	})

	t.Run("open breaker stops hammering the compositor", func(t *testing.T) {
		before := hits.Load()

		w, body := testutil.DoJSON(t, router, "GET", "/memory/overview", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, body, "display")
		assert.Equal(t, before, hits.Load())
	})

	t.Run("health still reports the attachment", func(t *testing.T) {
		w, body := testutil.DoJSON(t, router, "GET", "/health", nil)
		require.Equal(t, http.StatusOK, w.Code)

		d, ok := body["display"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, true, d["connected"])
	})
}

// TestDisplayAttachedIntegration runs the service against a healthy
// compositor and checks the stats flow through untouched.
func TestDisplayAttachedIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping display integration test")
	}

	compositor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/display/stats" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"width":             1920,
			"height":            1080,
			"stride":            7680,
			"bytes_per_pixel":   4,
			"front_bytes":       8294400,
			"back_bytes":        8294400,
			"glyph_cache_bytes": 262144,
			"dirty_rows":        17,
		})
	}))
	defer compositor.Close()

	cfg := testutil.TestConfig()
	cfg.Display.URL = compositor.URL
	cfg.Display.RPS = 0

	srv := testutil.SetupServerWith(t, cfg)
	router := srv.Router()

	t.Run("overview carries framebuffer stats", func(t *testing.T) {
		w, body := testutil.DoJSON(t, router, "GET", "/memory/overview", nil)
		require.Equal(t, http.StatusOK, w.Code)

		assert.EqualValues(t, 1920, testutil.Num(t, body, "display", "width"))
		assert.EqualValues(t, 8294400, testutil.Num(t, body, "display", "front_bytes"))
		assert.EqualValues(t, 17, testutil.Num(t, body, "display", "dirty_rows"))
	})

	t.Run("status reports a closed breaker", func(t *testing.T) {
		_, body := testutil.DoJSON(t, router, "GET", "/status", nil)
		assert.Equal(t, "closed", body["display_breaker"])
	})
}

// TestBreakerRecoveryIntegration drives a breaker against a real HTTP
// upstream through an outage and back.
func TestBreakerRecoveryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping breaker recovery integration test")
	}

	var healthy atomic.Bool
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			http.Error(w, "not yet", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer upstream.Close()

	breaker := resilience.New("upstream", resilience.Settings{
		MaxRequests: 1,
		Timeout:     100 * time.Millisecond,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
	})

	fetch := func() (interface{}, error) {
		resp, err := upstream.Client().Get(upstream.URL)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("upstream: status %d", resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}

	t.Run("outage trips the breaker", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, err := breaker.Execute(fetch)
			require.Error(t, err)
		}
		require.Equal(t, resilience.StateOpen, breaker.State())

		// Calls now fail without reaching the upstream.
		_, err := breaker.Execute(fetch)
		assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	})

	t.Run("recovery closes it again", func(t *testing.T) {
		healthy.Store(true)
		time.Sleep(150 * time.Millisecond)

		result, err := breaker.Execute(fetch)
		require.NoError(t, err)
		assert.Equal(t, "ok", result)
		assert.Equal(t, resilience.StateClosed, breaker.State())
	})

	t.Run("collaborators keep independent circuits", func(t *testing.T) {
		other := resilience.New("other", resilience.Settings{
			ReadyToTrip: func(c resilience.Counts) bool {
				return c.ConsecutiveFailures >= 1
			},
		})
		_, err := other.Execute(func() (interface{}, error) {
			return nil, errors.New("down")
		})
		require.Error(t, err)

		assert.Equal(t, resilience.StateOpen, other.State())
		assert.Equal(t, resilience.StateClosed, breaker.State())
	})
}
