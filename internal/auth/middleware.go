package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tasknest/tasknest-api/internal/httputil"
	"github.com/tasknest/tasknest-api/internal/user"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const accountContextKey ContextKey = "account"

// AccountResolver resolves a bearer token into an account. Implemented by
// *Service; narrowed to an interface so the middleware tests can stub it.
type AccountResolver interface {
	ResolveAccount(ctx context.Context, tokenStr string) (*user.Account, error)
}

// Middleware authenticates requests and enforces the active-account gate.
type Middleware struct {
	resolver AccountResolver
}

func NewMiddleware(resolver AccountResolver) *Middleware {
	return &Middleware{resolver: resolver}
}

// ExtractBearerToken pulls the token out of an Authorization header.
// The empty string means no credentials were presented at all.
func ExtractBearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", true
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// Authenticate resolves the caller's identity and stores the account in the
// request context. Every token-resolution failure answers with the same
// message, so clients cannot probe which check failed.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr, ok := ExtractBearerToken(r)
		if !ok {
			httputil.RespondErrorWithCode(w, "invalid authorization header format", httputil.CodeInvalidAuthHeader, http.StatusUnauthorized)
			return
		}
		if tokenStr == "" {
			httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
			return
		}

		account, err := m.resolver.ResolveAccount(r.Context(), tokenStr)
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) {
				httputil.RespondErrorWithCode(w, "invalid credentials", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
				return
			}
			httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), accountContextKey, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireActive rejects authenticated but not-yet-activated accounts.
// Layered after Authenticate on every endpoint except login and the
// activation confirmation, which an inactive user must still reach.
func (m *Middleware) RequireActive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, ok := AccountFromContext(r.Context())
		if !ok {
			httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
			return
		}

		if !account.Active {
			httputil.RespondErrorWithCode(w, "account is not active", httputil.CodeInactiveAccount, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// AccountFromContext retrieves the resolved account from the request context
func AccountFromContext(ctx context.Context) (*user.Account, bool) {
	account, ok := ctx.Value(accountContextKey).(*user.Account)
	return account, ok
}
