package httpapi

import (
	"testing"
	"time"

	"warungpos/backend/internal/domain"
)

func TestLoginAndTokenRoundTrip(t *testing.T) {
	t.Setenv("SEED_ADMIN_PASSWORD", "rahasia-admin")
	t.Setenv("SEED_CASHIER_PASSWORD", "rahasia-kasir")

	manager := NewAuthManager("test-secret-test-secret-test-secret", time.Hour)

	resp, err := manager.Login(domain.LoginRequest{Username: "admin", Password: "rahasia-admin"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Role != "admin" || resp.AccessToken == "" {
		t.Fatalf("unexpected login response %+v", resp)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "admin" || actor.Role != "admin" {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Setenv("SEED_ADMIN_PASSWORD", "rahasia-admin")
	t.Setenv("SEED_CASHIER_PASSWORD", "rahasia-kasir")

	manager := NewAuthManager("test-secret-test-secret-test-secret", time.Hour)

	if _, err := manager.Login(domain.LoginRequest{Username: "admin", Password: "salah"}); err == nil {
		t.Fatalf("expected wrong password to fail")
	}
	if _, err := manager.Login(domain.LoginRequest{Username: "ghost", Password: "rahasia-admin"}); err == nil {
		t.Fatalf("expected unknown user to fail")
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	t.Setenv("SEED_ADMIN_PASSWORD", "rahasia-admin")
	t.Setenv("SEED_CASHIER_PASSWORD", "rahasia-kasir")

	issuer := NewAuthManager("issuer-secret-issuer-secret-issuer", time.Hour)
	verifier := NewAuthManager("verifier-secret-verifier-secret-ve", time.Hour)

	resp, err := issuer.Login(domain.LoginRequest{Username: "cashier", Password: "rahasia-kasir"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := verifier.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
	if _, err := verifier.ParseToken("not-a-token"); err == nil {
		t.Fatalf("expected garbage token to be rejected")
	}
}
