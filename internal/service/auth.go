package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/withyou-app/withyou/internal/model"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// TokenVerifier is satisfied by *auth.Client.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type AuthService struct {
	verifier  TokenVerifier
	jwtSecret string
	jwtExpiry time.Duration
	devTokens bool
	now       func() time.Time
}

// NewAuthService accepts a nil verifier when Firebase is not configured. With
// devTokens set, locally signed HS256 tokens are accepted as well.
func NewAuthService(verifier TokenVerifier, jwtSecret string, jwtExpiry time.Duration, devTokens bool) *AuthService {
	return &AuthService{
		verifier:  verifier,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
		devTokens: devTokens,
		now:       time.Now,
	}
}

// Verify resolves a bearer token to the identity it was issued for.
func (s *AuthService) Verify(ctx context.Context, token string) (*model.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	if s.devTokens && isHS256(token) {
		return s.verifyJWT(token)
	}

	if s.verifier == nil {
		return nil, fmt.Errorf("%w: no identity provider configured", ErrInvalidToken)
	}

	t, err := s.verifier.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return &model.Identity{
		UID:      t.UID,
		Email:    claimString(t.Claims, "email"),
		Name:     claimString(t.Claims, "name"),
		PhotoURL: claimString(t.Claims, "picture"),
	}, nil
}

func (s *AuthService) GenerateJWT(identity *model.Identity) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":     identity.UID,
		"email":   identity.Email,
		"name":    identity.Name,
		"picture": identity.PhotoURL,
		"exp":     now.Add(s.jwtExpiry).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func (s *AuthService) verifyJWT(tokenString string) (*model.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	uid, err := claims.GetSubject()
	if err != nil || uid == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &model.Identity{
		UID:      uid,
		Email:    claimString(claims, "email"),
		Name:     claimString(claims, "name"),
		PhotoURL: claimString(claims, "picture"),
	}, nil
}

// isHS256 peeks at the unverified header. Firebase ID tokens are RS256.
func isHS256(token string) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	return parsed.Method == jwt.SigningMethodHS256
}

func claimString(claims map[string]any, key string) string {
	v, _ := claims[key].(string)
	return v
}
