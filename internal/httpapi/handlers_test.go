package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/kv/memory"
	"warungpos/backend/internal/pos"
)

func newTestAPI(t *testing.T) *API {
	t.Helper()
	t.Setenv("SEED_ADMIN_PASSWORD", "rahasia-admin")
	t.Setenv("SEED_CASHIER_PASSWORD", "rahasia-kasir")

	svc, err := pos.Load(context.Background(), memory.NewSeeded())
	if err != nil {
		t.Fatalf("load service: %v", err)
	}
	auth := NewAuthManager("test-secret-test-secret-test-secret", time.Hour)
	return New(svc, auth, "http://127.0.0.1:3000")
}

func loginToken(t *testing.T, handler http.Handler, username string, password string) string {
	t.Helper()
	payload, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.AccessToken
}

func doJSON(t *testing.T, handler http.Handler, method string, path string, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestAPI(t).Handler()
	rec := doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestProtectedEndpointsRequireToken(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/products", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/products", "garbage-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with garbage token, got %d", rec.Code)
	}
}

func TestCashierCannotReachAdminSurface(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := loginToken(t, handler, "cashier", "rahasia-kasir")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/audit-logs", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier on audit logs, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/register/open", token, domain.RegisterOpenRequest{
		OpeningBalanceCents: 1000, ScheduledCloseTime: "21:00",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier register open, got %d", rec.Code)
	}
}

func TestCheckoutFlowOverHTTP(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := loginToken(t, handler, "admin", "rahasia-admin")
	cashier := loginToken(t, handler, "cashier", "rahasia-kasir")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/register/open", admin, domain.RegisterOpenRequest{
		OpeningBalanceCents: 250000, ScheduledCloseTime: "21:00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register open returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/cart/items", cashier, domain.CartAddRequest{
		ProductID: "PRD-MIE-01", Qty: 2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("cart add returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/checkout", cashier, domain.CheckoutRequest{PaymentMethod: "cash"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout returned %d: %s", rec.Code, rec.Body.String())
	}
	var checkout struct {
		Transaction domain.Transaction `json:"transaction"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &checkout); err != nil {
		t.Fatalf("decode checkout response: %v", err)
	}
	if checkout.Transaction.ID != 1001 || checkout.Transaction.TotalCents != 7000 {
		t.Fatalf("unexpected transaction %+v", checkout.Transaction)
	}

	// Checkout on the now-empty cart conflicts.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/checkout", cashier, domain.CheckoutRequest{PaymentMethod: "cash"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for empty cart, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/transactions/1001/void", admin, domain.VoidTransactionRequest{Reason: "test"})
	if rec.Code != http.StatusOK {
		t.Fatalf("void returned %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/transactions/1001/void", admin, domain.VoidTransactionRequest{Reason: "again"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for double void, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/transactions/1001", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete returned %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/transactions/1001", admin, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestTransactionIDMustBeNumeric(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := loginToken(t, handler, "admin", "rahasia-admin")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/transactions/abc", admin, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := loginToken(t, handler, "admin", "rahasia-admin")

	rec := doJSON(t, handler, http.MethodDelete, "/api/v1/products", admin, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestLoginAttemptLimiter(t *testing.T) {
	limiter := newAttemptLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("10.0.0.1") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatalf("fourth attempt should be blocked")
	}
	// Other clients are unaffected.
	if !limiter.Allow("10.0.0.2") {
		t.Fatalf("different client should be allowed")
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := newTestAPI(t).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/products", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "http://127.0.0.1:3000" {
		t.Fatalf("unexpected allow-origin %q", origin)
	}
}
