package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhakimsaputra17/discount-voucher-management/internal/auth"
)

func TestCredentials_Validate(t *testing.T) {
	tests := []struct {
		name string
		c    auth.Credentials
		want map[string]string
	}{
		{
			name: "Valid",
			c:    auth.Credentials{Email: "admin@example.com", Password: "anything"},
		},
		{
			name: "Empty",
			c:    auth.Credentials{},
			want: map[string]string{"email": "Email is required", "password": "Password is required"},
		},
		{
			name: "BadEmail",
			c:    auth.Credentials{Email: "not-an-email", Password: "x"},
			want: map[string]string{"email": "Invalid email format"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.Validate())
		})
	}
}

func TestIssuer_RoundTrip(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	iss := auth.NewIssuer("secret", time.Hour).WithClock(func() time.Time { return now })

	tok, err := iss.Issue("admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), tok.ExpiresAt)

	claims, err := iss.Verify(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", claims.Subject)
	assert.NotEmpty(t, claims.TokenID)
	assert.Equal(t, now.Add(time.Hour), claims.ExpiresAt.UTC())
}

func TestIssuer_Rejects(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	iss := auth.NewIssuer("secret", time.Hour).WithClock(func() time.Time { return now })

	tok, err := iss.Issue("admin@example.com")
	require.NoError(t, err)

	t.Run("Expired", func(t *testing.T) {
		later := iss.WithClock(func() time.Time { return now.Add(2 * time.Hour) })

		_, err := later.Verify(tok.Value)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := auth.NewIssuer("other", time.Hour).WithClock(func() time.Time { return now })

		_, err := other.Verify(tok.Value)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := iss.Verify("dummy-token")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("NoneAlgorithm", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject:   "x",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = iss.Verify(unsigned)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}
