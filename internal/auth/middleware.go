package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
	"github.com/quickinvoice/quickinvoice/internal/shared"
)

// Middleware rejects requests without a valid bearer token and stores the
// resolved account id in the request context.
func Middleware(service *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r.Header.Get("Authorization"))
			accountID, err := service.Verify(r.Context(), token)
			if err != nil {
				if !errors.Is(err, ErrInvalidToken) {
					if logger != nil {
						logger.Error("verify token", slog.Any("error", err))
					}
					httpx.RespondError(w, err)
					return
				}
				w.Header().Set("WWW-Authenticate", `Bearer realm="quickinvoice"`)
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing or invalid bearer token")
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithAccount(r.Context(), accountID)))
		})
	}
}
