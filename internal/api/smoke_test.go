package api_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/predikto/tradecore/internal/api"
	"github.com/predikto/tradecore/internal/config"
)

// newTestRouter builds the router with zero-value dependencies; only routes
// that never reach a service are exercised here.
func newTestRouter() http.Handler {
	gin.SetMode(gin.TestMode)
	return api.SetupRouter(api.RouterDeps{
		Cfg: &config.Config{},
	})
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("health body = %q, want it to contain %q", w.Body.String(), "ok")
	}
}

func TestPlaceBetRequiresIdentity(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/bets", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("POST /api/bets without identity = %d, want 401", w.Code)
	}
}

func TestPlaceBetRejectsMalformedBody(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/bets", strings.NewReader(`{"event_id": 42`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "64f1b2c3d4e5f60718293a4b")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("POST /api/bets with malformed body = %d, want 400", w.Code)
	}
}

func TestCancelBetRequiresIdentity(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/bets/64f1b2c3d4e5f60718293a4b/cancel",
		strings.NewReader(`{"event_id":"x","quantity":1}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("POST /api/bets/:id/cancel without identity = %d, want 401", w.Code)
	}
}
