package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_LIST", " https://a.example , ,https://b.example")
	t.Setenv("TEST_INT", "nope")
	t.Setenv("TEST_FLOAT", "2.5")
	t.Setenv("TEST_DURATION", "16s")

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, envList("TEST_LIST", nil))
	assert.Equal(t, []string{"x"}, envList("TEST_LIST_MISSING", []string{"x"}))
	assert.Equal(t, 7, envInt("TEST_INT", 7))
	assert.Equal(t, 2.5, envFloat("TEST_FLOAT", 1))
	assert.Equal(t, 16*time.Second, envDuration("TEST_DURATION", time.Second))
}

func TestSanitizedDropsSecrets(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	assert.NoError(t, err)

	cfg := &Config{
		AppName:                 "WithYou",
		JWTSecret:               "secret",
		ResendAPIKey:            "re_123",
		S3SecretKey:             "s3",
		FirebaseCredentialsFile: "/etc/firebase.json",
		MetricsPass:             "pass",
		location:                loc,
	}

	s := cfg.Sanitized()
	assert.Equal(t, "WithYou", s.AppName)
	assert.Empty(t, s.JWTSecret)
	assert.Empty(t, s.ResendAPIKey)
	assert.Empty(t, s.S3SecretKey)
	assert.Empty(t, s.FirebaseCredentialsFile)
	assert.Empty(t, s.MetricsPass)
	assert.Equal(t, loc, s.Location())
}

func TestLocationDefaultsToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, (&Config{}).Location())
}
