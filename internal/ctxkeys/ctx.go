package ctxkeys

import (
	"context"

	"github.com/withyou-app/withyou/internal/model"
	"github.com/withyou-app/withyou/internal/session"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	IdentityKey  contextKey = "identity"
	ProfileKey   contextKey = "profile"
	RequestIDKey contextKey = "request_id"
	SessionKey   contextKey = "session"
)

func Identity(ctx context.Context) *model.Identity {
	identity, _ := ctx.Value(IdentityKey).(*model.Identity)
	return identity
}

func WithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// UserID is empty for anonymous requests.
func UserID(ctx context.Context) string {
	if identity := Identity(ctx); identity != nil {
		return identity.UID
	}
	return ""
}

func Profile(ctx context.Context) *model.Profile {
	profile, _ := ctx.Value(ProfileKey).(*model.Profile)
	return profile
}

func WithProfile(ctx context.Context, profile *model.Profile) context.Context {
	return context.WithValue(ctx, ProfileKey, profile)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// Session is the per-request session context set by the auth middleware.
func Session(ctx context.Context) *session.Context {
	sess, _ := ctx.Value(SessionKey).(*session.Context)
	return sess
}

func WithSession(ctx context.Context, sess *session.Context) context.Context {
	return context.WithValue(ctx, SessionKey, sess)
}
