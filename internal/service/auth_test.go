package service

import (
	"context"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/withyou-app/withyou/internal/model"
)

type fakeVerifier struct {
	tokens map[string]*auth.Token
}

func (v *fakeVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	t, ok := v.tokens[idToken]
	if !ok {
		return nil, errBoom
	}
	return t, nil
}

func TestAuthService_Verify(t *testing.T) {
	verifier := &fakeVerifier{tokens: map[string]*auth.Token{
		"firebase-token": {UID: "fb1", Claims: map[string]any{"email": "a@example.com", "name": "Alice", "picture": "https://img.test/a"}},
	}}

	signer := NewAuthService(nil, "secret", time.Hour, true)
	signer.now = fixedNow
	devToken, err := signer.GenerateJWT(&model.Identity{UID: "dev1", Email: "dev@example.com"})
	require.NoError(t, err)

	otherSigner := NewAuthService(nil, "other-secret", time.Hour, true)
	otherSigner.now = fixedNow
	forged, err := otherSigner.GenerateJWT(&model.Identity{UID: "dev1"})
	require.NoError(t, err)

	tests := []struct {
		name          string
		verifier      TokenVerifier
		devTokens     bool
		now           time.Time
		token         string
		expectedUID   string
		expectedEmail string
		expectedError error
	}{
		{name: "missing", verifier: verifier, token: " ", expectedError: ErrMissingToken},
		{name: "firebase", verifier: verifier, token: "firebase-token", expectedUID: "fb1", expectedEmail: "a@example.com"},
		{name: "firebase rejects", verifier: verifier, token: "garbage", expectedError: ErrInvalidToken},
		{name: "dev token", devTokens: true, now: testNow, token: devToken, expectedUID: "dev1", expectedEmail: "dev@example.com"},
		{name: "dev token expired", devTokens: true, now: testNow.Add(2 * time.Hour), token: devToken, expectedError: ErrInvalidToken},
		{name: "dev token wrong secret", devTokens: true, now: testNow, token: forged, expectedError: ErrInvalidToken},
		{name: "dev tokens disabled", verifier: verifier, devTokens: false, now: testNow, token: devToken, expectedError: ErrInvalidToken},
		{name: "no provider", token: "firebase-token", expectedError: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAuthService(tt.verifier, "secret", time.Hour, tt.devTokens)
			if !tt.now.IsZero() {
				now := tt.now
				svc.now = func() time.Time { return now }
			}

			identity, err := svc.Verify(context.Background(), tt.token)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, identity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedUID, identity.UID)
			assert.Equal(t, tt.expectedEmail, identity.Email)
		})
	}
}
