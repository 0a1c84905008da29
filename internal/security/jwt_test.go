package security

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, errGen := GenerateToken("secret", 7, "alice", "admin", time.Hour)
	if errGen != nil {
		t.Fatalf("generate token: %v", errGen)
	}

	claims, errParse := ParseToken("secret", token)
	if errParse != nil {
		t.Fatalf("parse token: %v", errParse)
	}

	actor := claims.Actor()
	if actor.UserID != 7 || actor.Username != "alice" || actor.Role != "admin" {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, errGen := GenerateToken("secret", 1, "alice", "user", time.Hour)
	if errGen != nil {
		t.Fatalf("generate token: %v", errGen)
	}

	if _, errParse := ParseToken("other-secret", token); !errors.Is(errParse, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", errParse)
	}
}

func TestParseTokenExpired(t *testing.T) {
	token, errGen := GenerateToken("secret", 1, "alice", "user", -time.Minute)
	if errGen != nil {
		t.Fatalf("generate token: %v", errGen)
	}

	if _, errParse := ParseToken("secret", token); !errors.Is(errParse, ErrExpiredToken) {
		t.Fatalf("expected expired token, got %v", errParse)
	}
}

func TestParseTokenGarbage(t *testing.T) {
	if _, errParse := ParseToken("secret", "not-a-token"); !errors.Is(errParse, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", errParse)
	}
}
