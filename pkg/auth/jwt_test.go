package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/echovisit/echovisit-web/internal/config"
	"github.com/echovisit/echovisit-web/internal/domain"
)

func newManager(accessTTL time.Duration) *TokenManager {
	return NewTokenManager(config.JWTConfig{
		Secret:          "0123456789abcdef0123456789abcdef",
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "echovisit-web",
	})
}

func testClaims() *domain.Claims {
	return &domain.Claims{
		SessionID: uuid.New(),
		Role:      domain.RoleDoctor,
		UserID:    "doc-1",
		Name:      "Dr. Chen",
	}
}

func TestTokenPairRoundTrip(t *testing.T) {
	m := newManager(15 * time.Minute)
	in := testClaims()

	pair, err := m.GenerateTokenPair(in)
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}
	if pair.TokenType != "Bearer" {
		t.Errorf("token type = %q", pair.TokenType)
	}

	out, err := m.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if out.SessionID != in.SessionID || out.Role != in.Role || out.UserID != in.UserID || out.Name != in.Name {
		t.Errorf("claims = %+v, want %+v", out, in)
	}
}

func TestTokenTypeEnforced(t *testing.T) {
	m := newManager(15 * time.Minute)
	pair, err := m.GenerateTokenPair(testClaims())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.ValidateAccessToken(pair.RefreshToken); !errors.Is(err, ErrTokenTypeMismatch) {
		t.Errorf("refresh-as-access error = %v, want ErrTokenTypeMismatch", err)
	}
	if _, err := m.ValidateRefreshToken(pair.AccessToken); !errors.Is(err, ErrTokenTypeMismatch) {
		t.Errorf("access-as-refresh error = %v, want ErrTokenTypeMismatch", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	m := newManager(-time.Minute)
	pair, err := m.GenerateTokenPair(testClaims())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.ValidateAccessToken(pair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("error = %v, want ErrTokenExpired", err)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	m := newManager(15 * time.Minute)
	pair, err := m.GenerateTokenPair(testClaims())
	if err != nil {
		t.Fatal(err)
	}

	other := NewTokenManager(config.JWTConfig{
		Secret:          "another-secret-another-secret!!!",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "echovisit-web",
	})
	if _, err := other.ValidateAccessToken(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("error = %v, want ErrTokenInvalid", err)
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	m := newManager(15 * time.Minute)
	if _, err := m.ValidateAccessToken("not.a.token"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("error = %v, want ErrTokenInvalid", err)
	}
}
