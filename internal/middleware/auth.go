package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/withyou-app/withyou/internal/ctxkeys"
	"github.com/withyou-app/withyou/internal/metrics"
	"github.com/withyou-app/withyou/internal/model"
	"github.com/withyou-app/withyou/internal/session"
)

type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*model.Identity, error)
}

// AuthMiddleware resolves the bearer token to an identity and opens a session
// for the request. Requests without a token continue anonymously; a token that
// fails verification is rejected.
func AuthMiddleware(verifier IdentityVerifier, profiles session.ProfileLoader, broker session.Subscriber) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				sess := session.New(nil, profiles, broker)
				defer sess.Close()
				next.ServeHTTP(w, r.WithContext(ctxkeys.WithSession(r.Context(), sess)))
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				metrics.AuthRejections.WithLabelValues("invalid_token").Inc()
				slog.Debug("rejected bearer token", "error", err, "path", r.URL.Path)
				writeError(w, http.StatusUnauthorized, "Your session has expired. Please sign in again.")
				return
			}

			sess := session.New(identity, profiles, broker)
			defer sess.Close()

			ctx := ctxkeys.WithIdentity(r.Context(), identity)
			ctx = ctxkeys.WithSession(ctx, sess)
			if profile := sess.State().Profile; profile != nil {
				ctx = ctxkeys.WithProfile(ctx, profile)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.Identity(r.Context()) == nil {
			metrics.AuthRejections.WithLabelValues("anonymous").Inc()
			writeError(w, http.StatusUnauthorized, "Please sign in first.")
			return
		}
		next(w, r)
	}
}

// RequireProfile additionally requires a completed onboarding. A profile that
// could not be loaded is reported as unavailable, never as missing.
func RequireProfile(next http.HandlerFunc) http.HandlerFunc {
	return RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		sess := ctxkeys.Session(r.Context())
		if sess == nil {
			writeError(w, http.StatusServiceUnavailable, "Your profile is not available right now. Please try again.")
			return
		}

		state := sess.State()
		if !state.Ready() {
			writeError(w, http.StatusServiceUnavailable, "Your profile is not available right now. Please try again.")
			return
		}
		if state.NeedsOnboarding() {
			writeError(w, http.StatusConflict, "Please finish onboarding first.")
			return
		}

		next(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	// EventSource cannot set headers.
	if r.Header.Get("Accept") == "text/event-stream" {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
