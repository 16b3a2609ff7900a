package api

import (
	"errors"
	"testing"
	"time"

	"github.com/ericogr/skirmish/internal/game"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	tokens, err := NewTokenIssuer("s3cret", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	tok, err := tokens.Issue("b1", game.SideB)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := tokens.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.BattleID != "b1" || claims.Side != game.SideB {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestTokenIssuer_Rejects(t *testing.T) {
	tokens, _ := NewTokenIssuer("s3cret", time.Minute)
	tok, _ := tokens.Issue("b1", game.SideA)

	other, _ := NewTokenIssuer("different", time.Minute)
	if _, err := other.Parse(tok); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("foreign signature: expected ErrTokenInvalid, got %v", err)
	}
	if _, err := tokens.Parse(""); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("empty: expected ErrTokenInvalid, got %v", err)
	}

	tokens.now = func() time.Time { return time.Now().Add(time.Hour) }
	if _, err := tokens.Parse(tok); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expired: expected ErrTokenExpired, got %v", err)
	}
}
