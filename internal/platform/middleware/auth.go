package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "corpauth/pkg/domain-errors"
	"corpauth/pkg/platform/httputil"
	"corpauth/pkg/requestcontext"
)

// JWTValidator defines the interface for validating admin bearer tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	Subject string
	Role    string
	JTI     string
}

// DeniedRecorder is told about every rejected admin request.
type DeniedRecorder interface {
	AdminAccessDenied(ctx context.Context, reason string)
}

type contextKeySubject struct{}

var ContextKeySubject = contextKeySubject{}

// GetSubject retrieves the authenticated admin subject from the context
func GetSubject(ctx context.Context) string {
	subject, ok := ctx.Value(ContextKeySubject).(string)
	if !ok {
		return ""
	}
	return subject
}

// RequireAdmin rejects requests without a valid admin bearer token. The
// token's subject becomes the request's actor.
func RequireAdmin(validator JWTValidator, denied DeniedRecorder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reject := func(reason string, err error) {
				logger.WarnContext(ctx, "unauthorized access - "+reason,
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				if denied != nil {
					denied.AdminAccessDenied(ctx, reason)
				}
				if err == nil || !dErrors.HasCode(err, dErrors.CodeForbidden) {
					err = dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header")
				}
				httputil.WriteError(w, err)
			}

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				reject("missing token", nil)
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				reject("invalid token", err)
				return
			}

			ctx = context.WithValue(ctx, ContextKeySubject, claims.Subject)
			ctx = requestcontext.WithActor(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
