package utils

import (
	"testing"
)

func TestJWTRoundTrip(t *testing.T) {
	secret := "supersecret"
	userID := "4f4cd14e-49a5-4b39-8731-13077e0a9cbb"
	permissions := []string{"session:register", "credit:read"}

	token, err := GenerateToken(userID, permissions, secret)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("Expected valid token, got %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("Expected user id %q, got %q", userID, claims.UserID)
	}
	if len(claims.Permissions) != 2 || claims.Permissions[0] != "session:register" {
		t.Errorf("Expected permissions to round-trip, got %v", claims.Permissions)
	}
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("user", nil, "secret-a")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := ValidateToken(token, "secret-b"); err == nil {
		t.Errorf("Expected validation to fail with wrong secret")
	}
}
