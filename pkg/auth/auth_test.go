// pkg/auth/auth_test.go
package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	userID := uuid.New()

	pair, err := tm.GenerateTokenPair(userID, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	claims, err := tm.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
	assert.Equal(t, "ada@example.com", claims.Email)

	_, err = tm.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "refresh token must not pass as access token")
	_, err = tm.ValidateRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	next, err := tm.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	claims, err = tm.ValidateAccessToken(next.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestTokenManager_Expired(t *testing.T) {
	tm := NewTokenManager("a", "r", time.Minute, time.Hour)
	issued := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issued }
	pair, err := tm.GenerateTokenPair(uuid.New(), "x@example.com")
	require.NoError(t, err)

	tm.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tm.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
	_, err = tm.ValidateRefreshToken(pair.RefreshToken)
	assert.NoError(t, err)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	a := NewTokenManager("one", "r", time.Minute, time.Hour)
	b := NewTokenManager("two", "r", time.Minute, time.Hour)
	pair, err := a.GenerateTokenPair(uuid.New(), "x@example.com")
	require.NoError(t, err)
	_, err = b.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractTokenFromHeader(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def", "abc.def", false},
		{"Bearer   ", "", true},
		{"Basic abc", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := ExtractTokenFromHeader(tt.header)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPasswordManager(t *testing.T) {
	pm := NewPasswordManager(bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Secret123", false},
		{"too short", "Se1", true},
		{"no upper", "secret123", true},
		{"no lower", "SECRET123", true},
		{"no number", "SecretSecret", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pm.ValidatePassword(tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrWeakPassword)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	hash, err := pm.HashPassword("Secret123")
	require.NoError(t, err)
	assert.NoError(t, pm.ComparePassword(hash, "Secret123"))
	assert.ErrorIs(t, pm.ComparePassword(hash, "Secret124"), ErrPasswordMismatch)
}
