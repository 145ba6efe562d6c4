// Package testutil provides testing utilities and helpers for backend tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/stratocompute/stratos/backend/internal/infrastructure/config"
	"github.com/stratocompute/stratos/backend/internal/infrastructure/server"
)

// TestConfig returns a configuration sized for tests: small memory
// tiers, rate limiting off, quiet logs.
func TestConfig() *config.Config {
	cfg := config.Default()
	cfg.Memory.HeapSize = 65536
	cfg.Memory.ArenaSize = 262144
	cfg.Memory.MaxApps = 8
	cfg.Memory.RegionAlign = 4096
	cfg.Memory.TotalRAM = 16 * 1024 * 1024
	cfg.RateLimit.Enabled = false
	cfg.Logging.Level = "error"
	return cfg
}

// SetupServer builds a complete server on the test configuration.
func SetupServer(t *testing.T) *server.Server {
	t.Helper()
	return SetupServerWith(t, TestConfig())
}

// SetupServerWith builds a server from a caller-tuned configuration.
func SetupServerWith(t *testing.T, cfg *config.Config) *server.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv, err := server.NewServer(cfg)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

// DoJSON performs one request against the router and decodes the JSON
// response body when there is one.
func DoJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	decoded := make(map[string]interface{})
	if w.Body.Len() > 0 && strings.Contains(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("Failed to decode %s %s response: %v", method, path, err)
		}
	}
	return w, decoded
}

// AssertSuccess asserts the response envelope reported success.
func AssertSuccess(t *testing.T, body map[string]interface{}) {
	t.Helper()
	ok, _ := body["success"].(bool)
	if !ok {
		t.Fatalf("Expected success, got: %v", body)
	}
}

// AssertRefused asserts the response envelope reported success=false.
func AssertRefused(t *testing.T, body map[string]interface{}) {
	t.Helper()
	ok, exists := body["success"].(bool)
	if !exists {
		t.Fatalf("Response carries no success flag: %v", body)
	}
	if ok {
		t.Fatalf("Expected refusal, got success: %v", body)
	}
}

// Num walks nested objects and returns the numeric leaf. JSON numbers
// decode as float64.
func Num(t *testing.T, body map[string]interface{}, path ...string) float64 {
	t.Helper()

	current := body
	for i, key := range path {
		value, ok := current[key]
		if !ok {
			t.Fatalf("Field %s not found in response", strings.Join(path[:i+1], "."))
		}
		if i == len(path)-1 {
			n, ok := value.(float64)
			if !ok {
				t.Fatalf("Field %s is %T, not a number", strings.Join(path, "."), value)
			}
			return n
		}
		current, ok = value.(map[string]interface{})
		if !ok {
			t.Fatalf("Field %s is %T, not an object", strings.Join(path[:i+1], "."), value)
		}
	}
	t.Fatal("Num requires at least one path element")
	return 0
}
