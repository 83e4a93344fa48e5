package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/apperror"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/httpjson"
)

// contextKey is unexported so no other package can read or shadow values
// stored under it.
type contextKey string

const userIDKey contextKey = "userID"

// TokenVerifier turns a raw bearer token into an external user ID.
// *Verifier is the production implementation.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (string, error)
}

var errMalformedHeader = apperror.Unauthenticated("Authorization header must be 'Bearer <token>'")

// RequireAuth rejects requests that do not carry a valid bearer token and
// stores the verified user ID in the request context for everything else.
//
// Preflight OPTIONS requests pass through untouched. Browsers never attach
// credentials to them.
func RequireAuth(v TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token, present, err := bearerToken(r)
			if !present {
				err = apperror.Unauthenticated("User not authenticated")
			}
			if err == nil {
				var userID string
				userID, err = v.Verify(r.Context(), token)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
					return
				}
			}

			reject(w, r, logger, err)
		})
	}
}

// IdentifyIfPresent verifies the bearer token when one is sent but lets
// anonymous requests through. A token that is present but invalid is still
// rejected: a client that tried to authenticate and failed must find out.
func IdentifyIfPresent(v TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token, present, err := bearerToken(r)
			if !present {
				next.ServeHTTP(w, r)
				return
			}
			if err == nil {
				var userID string
				userID, err = v.Verify(r.Context(), token)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
					return
				}
			}

			reject(w, r, logger, err)
		})
	}
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the verified external user ID, or ("", false)
// for anonymous requests.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// bearerToken extracts the token from the Authorization header. present is
// false only when the header is absent or blank.
func bearerToken(r *http.Request) (token string, present bool, err error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false, nil
	}

	scheme, rest, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", true, errMalformedHeader
	}
	token = strings.TrimSpace(rest)
	if token == "" {
		return "", true, errMalformedHeader
	}
	return token, true, nil
}

// reject answers with 401, or 500 when the verifier itself is not set up.
// The token is never logged.
func reject(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := http.StatusUnauthorized
	message := "User not authenticated"

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if errors.Is(err, apperror.ErrMisconfigured) {
		status = http.StatusInternalServerError
		logger.Error("token verification unavailable",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	} else {
		attrs := []any{slog.String("path", r.URL.Path), slog.String("reason", message)}
		if appErr != nil && appErr.Cause != nil {
			attrs = append(attrs, slog.String("cause", appErr.Cause.Error()))
		}
		logger.Warn("rejected request token", attrs...)
	}

	httpjson.WriteError(w, logger, status, message, apperror.Code(err))
}
