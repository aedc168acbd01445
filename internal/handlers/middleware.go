package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/confly-app/apiserver/internal/services"
)

// FingerprintHeader carries the client-generated device identifier.
const FingerprintHeader = "X-Fingerprint"

// Identify attaches the caller's identity to the request context when an
// Authorization bearer token or an X-Fingerprint header resolves to an
// existing user. Resolution is strict: an unknown fingerprint never mints a
// new identity here. Requests without a resolvable identity pass through
// anonymously; RequireUser decides whether that is acceptable.
func Identify(identity *services.IdentityService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ctx, ok := identifyRequest(r, identity); ok {
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func identifyRequest(r *http.Request, identity *services.IdentityService) (context.Context, bool) {
	if token, err := bearerToken(r); err == nil {
		if user, err := identity.FromToken(r.Context(), token); err == nil {
			return withUser(r.Context(), user), true
		}
	}
	if fingerprint := strings.TrimSpace(r.Header.Get(FingerprintHeader)); fingerprint != "" {
		if user, err := identity.FromFingerprint(r.Context(), fingerprint); err == nil {
			return withUser(r.Context(), user), true
		}
	}
	return nil, false
}

// RequireUser rejects requests that Identify left anonymous.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := userFromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
