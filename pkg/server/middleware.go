package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/iin-community/kehila/pkg/model"
	"github.com/iin-community/kehila/pkg/utils/logging"
)

type ctxIdentityKey struct{}

// identityFrom returns the authenticated identity stored by requireUser.
func identityFrom(ctx context.Context) *model.Identity {
	identity, _ := ctx.Value(ctxIdentityKey{}).(*model.Identity)
	return identity
}

// requireUser verifies the Authorization bearer token and stores the resolved
// identity in the request context. Requests without a valid token get a 401
// and never reach the handler.
func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			writeError(ctx, w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		identity, err := s.verifier.Verify(ctx, token)
		if err != nil {
			logging.From(ctx).Warn("token verification failed", "error", err)
			writeError(ctx, w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx = context.WithValue(ctx, ctxIdentityKey{}, identity)
		next(w, r.WithContext(ctx))
	}
}
