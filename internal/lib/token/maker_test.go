package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaker_GenerateAndParse(t *testing.T) {
	maker := NewMaker("test_secret_key_1234567890")

	tests := []struct {
		name   string
		userID int64
		ttl    time.Duration
	}{
		{"short ttl", 42, time.Hour},
		{"month long", 424242, 30 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := maker.Generate(tt.userID, tt.ttl)
			require.NoError(t, err)
			assert.NotEmpty(t, tok)

			claims, err := maker.Parse(tok)
			require.NoError(t, err)
			assert.Equal(t, tt.userID, claims.UserID)
			assert.NotEmpty(t, claims.ID)
			assert.WithinDuration(t, time.Now().Add(tt.ttl), claims.ExpiresAt.Time, time.Second)
		})
	}
}

func TestMaker_TokensAreUnique(t *testing.T) {
	maker := NewMaker("test_secret_key_1234567890")

	first, err := maker.Generate(1, time.Hour)
	require.NoError(t, err)
	second, err := maker.Generate(1, time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestMaker_ParseInvalid(t *testing.T) {
	maker := NewMaker("test_secret_key_1234567890")
	other := NewMaker("another_secret_key")

	valid, err := maker.Generate(7, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"empty", ""},
		{"wrong secret", valid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := other.Parse(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestMaker_ParseExpired(t *testing.T) {
	maker := NewMaker("test_secret_key_1234567890")

	tok, err := maker.Generate(7, -time.Minute)
	require.NoError(t, err)

	_, err = maker.Parse(tok)
	assert.Error(t, err)
}
