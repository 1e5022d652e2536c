// Package api_test runs HTTP-level smoke tests using net/http/httptest.
// These tests do NOT require a PostgreSQL database — they verify:
//   - Gin router routing and middleware wiring
//   - Request validation error responses (400)
//   - JWT auth middleware (401 without token, 401 with bad token)
//   - Response format consistency (success/error envelope)
//   - CORS preflight handling
package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/evetabi/tipleague/internal/api"
	"github.com/evetabi/tipleague/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

func testCfg() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Env:  "development",
			Port: "8080",
		},
		JWT: config.JWTConfig{
			AccessSecret: "test-access-secret-abcdefghijklmnop",
			AccessTTL:    15 * time.Minute,
		},
		Ledger: config.LedgerConfig{
			CustomLeaguePeriod: "lifetime",
			WriteRetries:       3,
			RetryBackoff:       time.Millisecond,
		},
	}
}

// buildTestRouter creates a Gin engine with nil for everything that requires
// a DB. Routes that only exercise the middleware and validation layers never
// touch the nil services.
func buildTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := testCfg()

	r := api.SetupRouter(api.RouterDeps{
		LedgerSvc:     nil,
		SettlementSvc: nil,
		ScopeSvc:      nil,
		LeagueRepo:    nil,
		LedgerRepo:    nil,
		Hub:           nil,
		Cfg:           cfg,
	})
	return r
}

// mintToken signs a valid access token with the test secret.
func mintToken(t *testing.T, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  uuid.New().String(),
		"role": role,
		"type": "access",
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(15 * time.Minute).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(testCfg().JWT.AccessSecret))
	if err != nil {
		t.Fatalf("mintToken: %v", err)
	}
	return tok
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	if body != "" {
		buf = bytes.NewBufferString(body)
	} else {
		buf = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func authed(t *testing.T, role string) map[string]string {
	t.Helper()
	return map[string]string{"Authorization": "Bearer " + mintToken(t, role)}
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&m); err != nil {
		t.Fatalf("response is not valid JSON: %v — body: %s", err, rr.Body.String())
	}
	return m
}

// ── /health ───────────────────────────────────────────────────────────────────

func TestHealthEndpoint(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", rr.Code)
	}
}

func TestMetricsEndpoint_IsPublic(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/metrics", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("GET /metrics = %d, want 200", rr.Code)
	}
}

// ── JWT auth middleware (no token → 401) ──────────────────────────────────────

func TestBudget_NoToken_Returns401(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/ledger/budget?league_type=public_bet", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("GET /api/ledger/budget without token = %d, want 401", rr.Code)
	}
}

func TestMyTickets_NoToken_Returns401(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/tickets/my", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("GET /api/tickets/my without token = %d, want 401", rr.Code)
	}
}

func TestPlaceStake_NoToken_Returns401(t *testing.T) {
	h := buildTestRouter(t)
	payload := `{"league_type":"public_bet","stake":"10.00","total_odds":"2.50"}`
	rr := do(t, h, http.MethodPost, "/api/tickets", payload, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("POST /api/tickets without token = %d, want 401", rr.Code)
	}
}

// ── JWT auth middleware (invalid token → 401) ─────────────────────────────────

func TestBudget_InvalidToken_Returns401(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/ledger/budget?league_type=public_bet", "", map[string]string{
		"Authorization": "Bearer not.a.valid.jwt",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("GET /api/ledger/budget with bad JWT = %d, want 401", rr.Code)
	}
}

func TestPlaceStake_WrongSecret_Returns401(t *testing.T) {
	h := buildTestRouter(t)
	payload := `{"league_type":"public_bet","stake":"10.00","total_odds":"2.50"}`
	// A well-formed JWT signed with the wrong secret → rejected
	fakeJWT := "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9" +
		".eyJzdWIiOiIxMjM0NTY3ODkwIiwicm9sZSI6InVzZXIiLCJ0eXBlIjoiYWNjZXNzIn0" +
		".BADSIG"
	rr := do(t, h, http.MethodPost, "/api/tickets", payload, map[string]string{
		"Authorization": "Bearer " + fakeJWT,
	})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("POST /api/tickets with invalid JWT = %d, want 401", rr.Code)
	}
}

// ── Validation layer (valid token, bad request → 400) ─────────────────────────

func TestBudget_InvalidLeagueType_Returns400(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/ledger/budget?league_type=quiniela", "", authed(t, "user"))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("GET /api/ledger/budget with bad league_type = %d, want 400", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["code"] != "ERR_INVALID_LEAGUE_TYPE" {
		t.Errorf("code = %v, want ERR_INVALID_LEAGUE_TYPE", body["code"])
	}
}

func TestPlaceStake_MissingFields_Returns400(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodPost, "/api/tickets", `{}`, authed(t, "user"))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("POST /api/tickets empty body = %d, want 400", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["success"] != false {
		t.Errorf("response.success should be false on error, got %v", body["success"])
	}
}

func TestPlaceStake_NegativeStake_Returns400(t *testing.T) {
	h := buildTestRouter(t)
	payload := `{"league_type":"public_bet","stake":"-5.00","total_odds":"2.50"}`
	rr := do(t, h, http.MethodPost, "/api/tickets", payload, authed(t, "user"))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("POST /api/tickets with negative stake = %d, want 400", rr.Code)
	}
}

func TestPlaceStake_MalformedLeagueID_Returns400(t *testing.T) {
	h := buildTestRouter(t)
	payload := `{"league_type":"custom_league","league_id":"nope","stake":"5.00","total_odds":"2.50"}`
	rr := do(t, h, http.MethodPost, "/api/tickets", payload, authed(t, "user"))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("POST /api/tickets with malformed league_id = %d, want 400", rr.Code)
	}
}

// ── Role gating ───────────────────────────────────────────────────────────────

func TestSettle_UserRole_Returns403(t *testing.T) {
	h := buildTestRouter(t)
	path := "/api/tickets/" + uuid.New().String() + "/settle"
	rr := do(t, h, http.MethodPost, path, `{"outcome":"won"}`, authed(t, "user"))
	if rr.Code != http.StatusForbidden {
		t.Errorf("POST %s as plain user = %d, want 403", path, rr.Code)
	}
}

func TestSettle_AdminRole_PassesRoleGate(t *testing.T) {
	h := buildTestRouter(t)
	// Malformed ticket id keeps the handler in its validation layer, so the
	// nil settlement service is never touched: 400 proves the 403 gate opened.
	rr := do(t, h, http.MethodPost, "/api/tickets/not-a-uuid/settle", `{"outcome":"won"}`, authed(t, "admin"))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("POST /api/tickets/not-a-uuid/settle as admin = %d, want 400", rr.Code)
	}
}

// ── Error envelope format ─────────────────────────────────────────────────────

func TestErrorEnvelope_HasRequiredFields(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodPost, "/api/tickets", `{}`, authed(t, "user"))
	body := decodeBody(t, rr)

	for _, field := range []string{"success", "error", "code"} {
		if _, ok := body[field]; !ok {
			t.Errorf("error envelope missing field %q, got: %v", field, body)
		}
	}
	if body["success"] != false {
		t.Errorf("error envelope.success = %v, want false", body["success"])
	}
}

// ── CORS headers ──────────────────────────────────────────────────────────────

func TestCORSOptionsRequest(t *testing.T) {
	h := buildTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/tickets", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	// OPTIONS should return 204 (no content) in dev mode
	if rr.Code != http.StatusNoContent && rr.Code != http.StatusOK {
		t.Errorf("OPTIONS /api/tickets = %d, want 204 or 200", rr.Code)
	}
	allow := rr.Header().Get("Access-Control-Allow-Methods")
	if !strings.Contains(allow, "POST") {
		t.Errorf("Access-Control-Allow-Methods missing POST, got %q", allow)
	}
}

func TestCORSAllowOrigin_Dev(t *testing.T) {
	h := buildTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	// In dev mode, CORS origin should be wildcard
	origin := rr.Header().Get("Access-Control-Allow-Origin")
	if origin != "*" {
		t.Errorf("Dev CORS origin = %q, want *", origin)
	}
}
