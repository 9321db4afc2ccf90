package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/taskory/taskory/internal/domain"
	"github.com/taskory/taskory/internal/service"
)

type stubTokenService struct {
	signed func(token string) (*domain.Account, error)
	opaque func(key string) (*domain.Account, error)
}

func (s *stubTokenService) IssueOpaque(uint) (string, bool, error) { return "", false, nil }
func (s *stubTokenService) RevokeOpaque(uint) error                { return nil }
func (s *stubTokenService) IssueSignedPair(uint) (service.TokenPair, error) {
	return service.TokenPair{}, nil
}
func (s *stubTokenService) RefreshAccess(string) (service.TokenPair, error) {
	return service.TokenPair{}, nil
}
func (s *stubTokenService) VerifySigned(string) error { return nil }

func (s *stubTokenService) AuthenticateSigned(token string) (*domain.Account, error) {
	if s.signed == nil {
		return nil, errors.New("unexpected signed authentication")
	}
	return s.signed(token)
}

func (s *stubTokenService) AuthenticateOpaque(key string) (*domain.Account, error) {
	if s.opaque == nil {
		return nil, errors.New("unexpected opaque authentication")
	}
	return s.opaque(key)
}

func authProtectedHandler(t *testing.T, wantAccountID uint) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, ok := AccountFromContext(r.Context())
		if !ok {
			t.Fatal("expected account on request context")
		}
		if account.ID != wantAccountID {
			t.Fatalf("expected account %d on context, got %d", wantAccountID, account.ID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareMissingAndMalformedHeaders(t *testing.T) {
	handler := AuthMiddleware(&stubTokenService{})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not run without credentials")
	}))

	for _, header := range []string{"", "Bearer", "Token   ", "Basic dXNlcjpwYXNz"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestAuthMiddlewareBearerScheme(t *testing.T) {
	tokens := &stubTokenService{
		signed: func(token string) (*domain.Account, error) {
			if token != "good-jwt" {
				return nil, service.ErrInvalidToken
			}
			return &domain.Account{ID: 7, Email: "a@example.com"}, nil
		},
	}
	handler := AuthMiddleware(tokens)(authProtectedHandler(t, 7))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	req.Header.Set("Authorization", "Bearer good-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for valid bearer credential, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	req.Header.Set("Authorization", "Bearer tampered")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for rejected bearer credential, got %d", rec.Code)
	}
}

func TestAuthMiddlewareTokenScheme(t *testing.T) {
	tokens := &stubTokenService{
		opaque: func(key string) (*domain.Account, error) {
			if key != "opaque-key" {
				return nil, service.ErrInvalidToken
			}
			return &domain.Account{ID: 12, Email: "b@example.com"}, nil
		},
	}
	handler := AuthMiddleware(tokens)(authProtectedHandler(t, 12))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	req.Header.Set("Authorization", "Token opaque-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for valid opaque credential, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	req.Header.Set("Authorization", "token opaque-key")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("scheme should be case-insensitive, got %d", rec.Code)
	}
}
