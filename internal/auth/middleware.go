package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-sales/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-sales/internal/shared"
)

// Middleware gates routes behind a bearer access token.
//
// No token yields 401; a token that fails verification yields 403. On success
// the account identity is attached to the request context.
func Middleware(tokens *TokenIssuer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				httpx.RespondError(w, r, logger, shared.ErrTokenMissing, "")
				return
			}
			claims, err := tokens.VerifyAccess(token)
			if err != nil {
				if logger != nil {
					logger.Debug("token rejected", slog.Any("error", err), slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, r, logger, shared.ErrTokenInvalid, "")
				return
			}
			ctx := shared.ContextWithIdentity(r.Context(), shared.Identity{AccountID: claims.AccountID, Email: claims.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken returns the credential following the scheme in an Authorization
// header, or "" when there is none. The scheme is not checked, so "Basic xyz"
// yields "xyz" and fails verification with 403 rather than 401.
func bearerToken(header string) string {
	fields := strings.Fields(header)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}
