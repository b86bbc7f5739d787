package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)

	token, err := svc.GenerateToken("APP1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "APP1", claims.TenantID)
	assert.Equal(t, "APP1", claims.Subject)
	assert.Equal(t, issuer, claims.Issuer)
}

func TestJWTService_GenerateWithoutTenant(t *testing.T) {
	svc := NewJWTService("test-secret", 0)

	_, err := svc.GenerateToken("")
	assert.ErrorIs(t, err, ErrMissingTenant)
	assert.Equal(t, DefaultExpiry, svc.expiry)
}

func TestJWTService_ValidateToken(t *testing.T) {
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	signer := NewJWTService("test-secret", time.Hour)
	signer.now = func() time.Time { return issued }
	valid, err := signer.GenerateToken("APP1")
	require.NoError(t, err)

	otherKey := NewJWTService("other-secret", time.Hour)
	otherKey.now = signer.now
	foreign, err := otherKey.GenerateToken("APP1")
	require.NoError(t, err)

	noTenant := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
		},
	})
	noTenantToken, err := noTenant.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		now     time.Time
		wantErr error
	}{
		{name: "valid", token: valid, now: issued.Add(time.Minute)},
		{name: "expired", token: valid, now: issued.Add(2 * time.Hour), wantErr: ErrExpiredToken},
		{name: "wrong_key", token: foreign, now: issued, wantErr: ErrInvalidToken},
		{name: "garbage", token: "not-a-token", now: issued, wantErr: ErrInvalidToken},
		{name: "missing_tenant", token: noTenantToken, now: issued, wantErr: ErrMissingTenant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewJWTService("test-secret", time.Hour)
			svc.now = func() time.Time { return tt.now }

			claims, err := svc.ValidateToken(tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "APP1", claims.TenantID)
		})
	}
}

func TestJWTService_RefreshToken(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)

	token, err := svc.GenerateToken("APP1")
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(token)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(refreshed)
	require.NoError(t, err)
	assert.Equal(t, "APP1", claims.TenantID)

	_, err = svc.RefreshToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
