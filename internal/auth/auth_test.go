package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345"

func TestHashAndCheckPassword(t *testing.T) {
	hashed, err := HashPassword("trainer-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "trainer-pass", hashed)

	assert.True(t, CheckPassword(hashed, "trainer-pass"))
	assert.False(t, CheckPassword(hashed, "wrong"))
	assert.False(t, CheckPassword(hashed, ""))

	other, _ := HashPassword("trainer-pass")
	assert.NotEqual(t, hashed, other)
}

func TestValidRole(t *testing.T) {
	for _, r := range []string{RoleAdmin, RoleStaff, RoleTrainer, RoleMember} {
		assert.True(t, ValidRole(r), r)
	}
	assert.False(t, ValidRole("user"))
	assert.False(t, ValidRole(""))
}

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateAccessToken(7, "coach@gym.test", RoleTrainer, testSecret)
	require.NoError(t, err)

	claims, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, "coach@gym.test", claims.Email)
	assert.Equal(t, RoleTrainer, claims.Role)
	assert.Equal(t, tokenTypeAccess, claims.TokenType)
	assert.Equal(t, jwtIssuer, claims.Issuer)
	assert.Contains(t, claims.Audience, jwtAudience)

	exp := claims.ExpiresAt.Time
	assert.WithinDuration(t, time.Now().Add(AccessTokenTTL), exp, 5*time.Second)
}

func TestGenerateAccessToken_EmptySecret(t *testing.T) {
	token, err := GenerateAccessToken(1, "m@gym.test", RoleMember, "")
	assert.Equal(t, ErrEmptyJWTSecret, err)
	assert.Empty(t, token)
}

func TestValidateToken_Failures(t *testing.T) {
	token, _ := GenerateAccessToken(1, "m@gym.test", RoleMember, testSecret)

	t.Run("empty secret", func(t *testing.T) {
		_, err := ValidateToken(token, "")
		assert.Equal(t, ErrEmptyJWTSecret, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		claims, err := ValidateToken(token, "other")
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ValidateToken("invalid.token.format", testSecret)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		claims := &JWTClaims{
			UserID:    1,
			Role:      RoleMember,
			TokenType: tokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    jwtIssuer,
				Audience:  []string{jwtAudience},
				ExpiresAt: jwt.NewNumericDate(past),
				IssuedAt:  jwt.NewNumericDate(past.Add(-15 * time.Minute)),
			},
		}
		signed, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))

		_, err := ValidateToken(signed, testSecret)
		assert.Equal(t, ErrTokenExpired, err)
	})
}

func TestRefreshAccessToken(t *testing.T) {
	access, refresh, err := GenerateTokens(3, "admin@gym.test", RoleAdmin, "access-secret", "refresh-secret")
	require.NoError(t, err)

	t.Run("refresh token works", func(t *testing.T) {
		newAccess, claims, err := RefreshAccessToken(refresh, "refresh-secret", "access-secret")
		require.NoError(t, err)
		assert.NotEmpty(t, newAccess)
		assert.Equal(t, 3, claims.UserID)
		assert.Equal(t, RoleAdmin, claims.Role)
	})

	t.Run("access token rejected", func(t *testing.T) {
		_, _, err := RefreshAccessToken(access, "access-secret", "access-secret")
		assert.Equal(t, ErrInvalidTokenType, err)
	})

	t.Run("wrong refresh secret", func(t *testing.T) {
		_, _, err := RefreshAccessToken(refresh, "nope", "access-secret")
		assert.Error(t, err)
	})
}
