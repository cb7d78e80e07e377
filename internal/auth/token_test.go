package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coa-registry/internal/auth"
	"coa-registry/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestHS256_RoundTrip(t *testing.T) {
	v, err := auth.NewHS256Verifier(testSecret)
	require.NoError(t, err)

	id := models.Identity{Subject: "u1", Email: "u1@example.com", Name: "Uma"}
	token, err := auth.IssueHS256Token(testSecret, id, time.Hour)
	require.NoError(t, err)

	got, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestHS256_Rejects(t *testing.T) {
	v, err := auth.NewHS256Verifier(testSecret)
	require.NoError(t, err)
	ctx := context.Background()

	expired, err := auth.IssueHS256Token(testSecret, models.Identity{Subject: "u1"}, -time.Minute)
	require.NoError(t, err)

	wrongKey, err := auth.IssueHS256Token("other", models.Identity{Subject: "u1"}, time.Hour)
	require.NoError(t, err)

	noSubject, err := auth.IssueHS256Token(testSecret, models.Identity{Email: "x@example.com"}, time.Hour)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":    expired,
		"wrong key":  wrongKey,
		"no subject": noSubject,
		"no expiry":  noExpiry,
		"alg none":   unsigned,
		"garbage":    "not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(ctx, token)
			assert.Error(t, err)
		})
	}
}

func TestNewHS256Verifier_RequiresSecret(t *testing.T) {
	_, err := auth.NewHS256Verifier("")
	assert.Error(t, err)
}

func TestExtractTokenFromRequest(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc", "abc", false},
		{"bearer abc", "abc", false},
		{"", "", true},
		{"Basic abc", "", true},
		{"Bearer", "", true},
		{"Bearer a b", "", true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		got, err := auth.ExtractTokenFromRequest(r)
		if tt.wantErr {
			assert.Error(t, err, tt.header)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
