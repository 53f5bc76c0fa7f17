package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-langganan/internal/common"
)

var errNoToken = errors.New("auth: token missing")

// TokenVerifier turns a bearer token into claims.
type TokenVerifier interface {
	Verify(token string) (Claims, error)
}

// Middleware resolves bearer tokens into a common.Principal.
type Middleware struct {
	Verifier TokenVerifier
}

// Authenticate attaches the caller to the request when a valid bearer token is
// present. Requests without a token continue anonymously. A token that fails
// verification is rejected rather than silently downgraded.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := m.principal(r)
		switch {
		case errors.Is(err, errNoToken):
			next.ServeHTTP(w, r)
		case err != nil:
			writeUnauthorized(w, err)
		default:
			next.ServeHTTP(w, r.WithContext(common.WithPrincipal(r.Context(), p)))
		}
	})
}

// RequireAuth admits only authenticated callers.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return m.require("", next)
}

// RequireAdmin admits only callers holding the admin role.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return m.require(common.RoleAdmin, next)
}

// require reuses a principal set by Authenticate and otherwise verifies the
// token itself, so it also works on routes mounted without Authenticate.
func (m Middleware) require(role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := common.PrincipalFrom(r.Context())
		if !ok {
			var err error
			if p, err = m.principal(r); err != nil {
				writeUnauthorized(w, err)
				return
			}
		}
		if role != "" && p.Role != role {
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", role+" role required", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithPrincipal(r.Context(), p)))
	})
}

func (m Middleware) principal(r *http.Request) (common.Principal, error) {
	token := bearerToken(r)
	if token == "" {
		return common.Principal{}, errNoToken
	}
	if m.Verifier == nil {
		return common.Principal{}, errors.New("auth: verifier not configured")
	}
	claims, err := m.Verifier.Verify(token)
	if err != nil {
		return common.Principal{}, err
	}
	return common.Principal{UserID: claims.UserID, Role: claims.Role}, nil
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus != 0 {
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
