package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func issueHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	return tok
}

func TestValidateToken(t *testing.T) {
	cfg := JWTCfg{HS256Secret: testSecret}

	t.Run("valid token", func(t *testing.T) {
		tok := issueHS256(t, testSecret, jwt.MapClaims{
			"sub": "ops@example.com",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		sub, claims, err := ValidateToken(tok, cfg)
		if err != nil {
			t.Fatalf("Expected token to be accepted, got error: %v", err)
		}
		if sub != "ops@example.com" || claims["sub"] != "ops@example.com" {
			t.Errorf("Expected sub=ops@example.com, got %s", sub)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		tok := issueHS256(t, "other-secret", jwt.MapClaims{
			"sub": "ops@example.com",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		if _, _, err := ValidateToken(tok, cfg); err == nil {
			t.Fatal("Expected token signed with another secret to be rejected")
		}
	})

	t.Run("expired token", func(t *testing.T) {
		tok := issueHS256(t, testSecret, jwt.MapClaims{
			"sub": "ops@example.com",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		if _, _, err := ValidateToken(tok, cfg); !errors.Is(err, jwt.ErrTokenExpired) {
			t.Fatalf("Expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("missing exp", func(t *testing.T) {
		tok := issueHS256(t, testSecret, jwt.MapClaims{"sub": "ops@example.com"})
		if _, _, err := ValidateToken(tok, cfg); err == nil {
			t.Fatal("Expected token without exp to be rejected")
		}
	})

	t.Run("missing sub", func(t *testing.T) {
		tok := issueHS256(t, testSecret, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
		if _, _, err := ValidateToken(tok, cfg); !errors.Is(err, ErrMissingSubject) {
			t.Fatalf("Expected ErrMissingSubject, got %v", err)
		}
	})

	t.Run("RS256 rejected", func(t *testing.T) {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("Failed to generate key: %v", err)
		}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
			"sub": "ops@example.com",
			"exp": time.Now().Add(time.Hour).Unix(),
		}).SignedString(key)
		if err != nil {
			t.Fatalf("Failed to issue token: %v", err)
		}
		if _, _, err := ValidateToken(tok, cfg); err == nil {
			t.Fatal("Expected RS256 token to be rejected")
		}
	})
}

func TestMiddleware(t *testing.T) {
	var gotSub string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = Subject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	validToken := issueHS256(t, testSecret, jwt.MapClaims{
		"sub": "ops@example.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	tests := []struct {
		name     string
		cfg      JWTCfg
		headers  map[string]string
		wantCode int
		wantSub  string
	}{
		{
			name:     "bearer token",
			cfg:      JWTCfg{HS256Secret: testSecret},
			headers:  map[string]string{"Authorization": "Bearer " + validToken},
			wantCode: http.StatusNoContent,
			wantSub:  "ops@example.com",
		},
		{
			name:     "invalid bearer token",
			cfg:      JWTCfg{HS256Secret: testSecret},
			headers:  map[string]string{"Authorization": "Bearer not-a-token"},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "no credentials",
			cfg:      JWTCfg{HS256Secret: testSecret},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "debug header ignored outside dev mode",
			cfg:      JWTCfg{HS256Secret: testSecret},
			headers:  map[string]string{"X-Debug-Sub": "dev-user"},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "debug header in dev mode",
			cfg:      JWTCfg{HS256Secret: testSecret, DevMode: true},
			headers:  map[string]string{"X-Debug-Sub": "dev-user"},
			wantCode: http.StatusNoContent,
			wantSub:  "dev-user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSub = ""
			req := httptest.NewRequest(http.MethodGet, "/v1/lists", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			Middleware(tt.cfg)(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if gotSub != tt.wantSub {
				t.Errorf("subject = %q, want %q", gotSub, tt.wantSub)
			}
		})
	}
}
