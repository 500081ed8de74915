package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/withyou-app/withyou/internal/ctxkeys"
	"github.com/withyou-app/withyou/internal/model"
	"github.com/withyou-app/withyou/internal/repository"
)

type stubVerifier struct {
	tokens map[string]*model.Identity
}

func (v stubVerifier) Verify(ctx context.Context, token string) (*model.Identity, error) {
	identity, ok := v.tokens[token]
	if !ok {
		return nil, errors.New("bad token")
	}
	return identity, nil
}

type stubProfiles map[string]*model.Profile

func (p stubProfiles) ByUserID(userID string) (*model.Profile, error) {
	if userID == "broken" {
		return nil, errors.New("connection reset")
	}
	profile, ok := p[userID]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	return profile, nil
}

func TestAuthMiddleware(t *testing.T) {
	verifier := stubVerifier{tokens: map[string]*model.Identity{
		"ready":  {UID: "u1"},
		"new":    {UID: "u2"},
		"broken": {UID: "broken"},
	}}
	profiles := stubProfiles{"u1": {UserID: "u1", Username: "alice", Role: model.RoleChallenger}}

	protected := RequireProfile(func(w http.ResponseWriter, r *http.Request) {
		assert.NotNil(t, ctxkeys.Profile(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
	handler := AuthMiddleware(verifier, profiles, nil)(protected)

	tests := []struct {
		name           string
		header         string
		accept         string
		query          string
		expectedStatus int
	}{
		{name: "anonymous", expectedStatus: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer nope", expectedStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic ready", expectedStatus: http.StatusUnauthorized},
		{name: "onboarded", header: "Bearer ready", expectedStatus: http.StatusOK},
		{name: "needs onboarding", header: "Bearer new", expectedStatus: http.StatusConflict},
		{name: "profile unavailable", header: "Bearer broken", expectedStatus: http.StatusServiceUnavailable},
		{name: "event stream query token", accept: "text/event-stream", query: "?access_token=ready", expectedStatus: http.StatusOK},
		{name: "query token ignored for json", query: "?access_token=ready", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/goal"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestRequireAuth_AllowsIdentityWithoutProfile(t *testing.T) {
	verifier := stubVerifier{tokens: map[string]*model.Identity{"new": {UID: "u2"}}}
	handler := AuthMiddleware(verifier, stubProfiles{}, nil)(RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "u2", ctxkeys.UserID(r.Context()))
		assert.Nil(t, ctxkeys.Profile(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/onboarding", nil)
	req.Header.Set("Authorization", "Bearer new")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
