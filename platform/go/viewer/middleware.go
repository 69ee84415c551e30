package viewer

import (
	"net/http"

	"go.uber.org/zap"

	platformauth "github.com/zenGate-Global/studio-scheduler/platform/go/auth"
	platformlogging "github.com/zenGate-Global/studio-scheduler/platform/go/logging"
	"github.com/zenGate-Global/studio-scheduler/platform/go/problem"
)

// Middleware converts the verified credentials into a Viewer and stores it on the context.
// It must run after the JWT middleware. Requests without credentials are rejected.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		creds, ok := platformauth.UserFromContext(r.Context())
		if !ok || creds == nil {
			problem.Unauthorized(w, "credentials required")
			return
		}

		v, err := FromCredentials(creds)
		if err != nil {
			if logger := platformlogging.FromRequest(r, nil); logger != nil {
				logger.Warn("reject viewer claims", zap.Error(err))
			}
			problem.Unauthorized(w, "invalid viewer claims")
			return
		}

		ctx := WithViewer(r.Context(), v)
		if logger := platformlogging.FromRequest(r, nil); logger != nil {
			ctx = platformlogging.WithLogger(ctx, logger.With(zap.String("viewer_role", string(v.Role))))
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
