package main

import (
	"strings"
	"testing"

	"warungpos/backend/internal/config"
)

func TestValidateSecurityConfig(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short", AccessTokenTTLMinutes: 480})
	if err == nil || !strings.Contains(err.Error(), "AUTH_SECRET") {
		t.Fatalf("expected AUTH_SECRET error, got %v", err)
	}

	err = validateSecurityConfig(config.Config{
		AuthSecret:            strings.Repeat("s", 32),
		AccessTokenTTLMinutes: 0,
	})
	if err == nil || !strings.Contains(err.Error(), "ACCESS_TOKEN_TTL_MINUTES") {
		t.Fatalf("expected TTL error, got %v", err)
	}

	err = validateSecurityConfig(config.Config{
		AuthSecret:            strings.Repeat("s", 32),
		AccessTokenTTLMinutes: 480,
	})
	if err != nil {
		t.Fatalf("expected valid config to pass, got %v", err)
	}
}
