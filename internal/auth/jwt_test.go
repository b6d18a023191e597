package auth

import (
	"testing"

	"github.com/psds-microservice/portal-service/internal/model"
)

const testSecret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("user@example.com", "User", model.RoleClient, testSecret)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Email != "user@example.com" || claims.Role != "client" {
		t.Errorf("claims = %+v, want user@example.com/client", claims)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, _ := GenerateToken("user@example.com", "User", model.RoleClient, testSecret)
	if _, err := ParseToken(token, "other-secret"); err == nil {
		t.Fatal("token accepted with wrong secret")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := ParseToken(tok, testSecret); err == nil {
			t.Errorf("garbage token %q accepted", tok)
		}
	}
}

func TestParseTokenRejectsUnknownRole(t *testing.T) {
	token, _ := GenerateToken("user@example.com", "User", model.Role("superuser"), testSecret)
	if _, err := ParseToken(token, testSecret); err == nil {
		t.Fatal("token with unknown role accepted")
	}
}
