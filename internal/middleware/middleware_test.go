package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/vistaro/booking-service/internal/config"
)

func runWith(t *testing.T, mw echo.MiddlewareFunc, setup func(echo.Context)) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if setup != nil {
		setup(c)
	}
	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := handler(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	return rec
}

func TestRequireRole(t *testing.T) {
	mw := RequireRole("ADMIN", "CUSTOMER")

	rec := runWith(t, mw, func(c echo.Context) { c.Set("role", "CUSTOMER") })
	if rec.Code != http.StatusOK {
		t.Fatalf("allowed role: status = %d, want 200", rec.Code)
	}

	rec = runWith(t, mw, func(c echo.Context) { c.Set("role", "STRANGER") })
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unknown role: status = %d, want 403", rec.Code)
	}

	rec = runWith(t, mw, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("missing role: status = %d, want 403", rec.Code)
	}
}

func TestJWTAuthRejectsMissingToken(t *testing.T) {
	rec := runWith(t, JWTAuth("secret"), nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestJWTAuthRejectsGarbageToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	handler := JWTAuth("secret")(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := handler(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCachePayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": []string{"application/json"}}
	body := []byte(`{"slots":[]}`)

	payload, err := encodePayload(http.StatusOK, hdr, body)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	status, gotHdr, gotBody, ok := decodePayload(payload)
	if !ok {
		t.Fatal("decode failed")
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if gotHdr.Get("Content-Type") != "application/json" {
		t.Errorf("header = %v", gotHdr)
	}
	if string(gotBody) != string(body) {
		t.Errorf("body = %q, want %q", gotBody, body)
	}

	// Truncated payloads must be rejected, not panic.
	if _, _, _, ok := decodePayload(payload[:4]); ok {
		t.Error("truncated payload decoded successfully")
	}
	if _, _, _, ok := decodePayload(nil); ok {
		t.Error("nil payload decoded successfully")
	}
}

func TestBuildRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/seat/lock", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/seat/lock")
	c.Set("user_id", "7")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user_route"}
	key := buildRateKey(cfg, c)
	if !strings.HasPrefix(key, "rl:") {
		t.Fatalf("key %q should carry the prefix", key)
	}
	if !strings.Contains(key, "user:7") || !strings.Contains(key, "/api/v1/seat/lock") {
		t.Fatalf("key %q should contain user and route", key)
	}

	cfg.KeyStrategy = "ip"
	if key := buildRateKey(cfg, c); strings.Contains(key, "user:7") {
		t.Fatalf("ip strategy should not key on user: %q", key)
	}
}

func TestUserIDFallsBackToGuest(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if got := userID(c); got != "guest" {
		t.Fatalf("anonymous userID = %q, want guest", got)
	}
	c.Set("user_id", float64(12))
	if got := userID(c); got != "12" {
		t.Fatalf("numeric claim userID = %q, want 12", got)
	}
}
