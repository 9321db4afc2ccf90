package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/taskory/taskory/internal/domain"
	"github.com/taskory/taskory/internal/http/response"
	"github.com/taskory/taskory/internal/observability"
	"github.com/taskory/taskory/internal/service"
)

type contextKey string

const (
	AccountContextKey contextKey = "account"
)

// AuthMiddleware authenticates requests carrying either a signed credential
// ("Bearer <jwt>") or an opaque per-account key ("Token <key>") and stores the
// resolved account on the request context.
func AuthMiddleware(tokens service.TokenServiceInterface) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, credential := splitAuthorization(r.Header.Get("Authorization"))
			if credential == "" {
				observability.RecordAccessTokenValidation(r.Context(), "missing", "none")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing credentials", nil)
				return
			}

			var (
				account *domain.Account
				err     error
				source  string
			)
			switch scheme {
			case "bearer":
				source = "jwt"
				account, err = tokens.AuthenticateSigned(credential)
			case "token":
				source = "opaque"
				account, err = tokens.AuthenticateOpaque(credential)
			default:
				observability.RecordAccessTokenValidation(r.Context(), "bad_scheme", "none")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "unsupported authorization scheme", nil)
				return
			}
			if err != nil {
				observability.RecordAccessTokenValidation(r.Context(), "rejected", source)
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials", nil)
				return
			}

			observability.RecordAccessTokenValidation(r.Context(), "accepted", source)
			ctx := context.WithValue(r.Context(), AccountContextKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func splitAuthorization(header string) (scheme, credential string) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return strings.ToLower(parts[0]), ""
	}
	return strings.ToLower(parts[0]), strings.TrimSpace(parts[1])
}

func AccountFromContext(ctx context.Context) (*domain.Account, bool) {
	a, ok := ctx.Value(AccountContextKey).(*domain.Account)
	return a, ok
}
