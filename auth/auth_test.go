package auth

import (
	"chat-lounge/errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "MyPasswordIsTooStrong!"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	// Wrong password
	match, err = ComparePassword("WrongPassword", hash)
	req.NoError(err)
	req.False(match)
}

func TestComparePassword_Invalid_Hash(t *testing.T) {
	req := require.New(t)

	_, err := ComparePassword("secret", "not-a-hash")

	req.Error(err)
}

func TestLoginValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     LoginRequest
		wantErr bool
	}{
		{"Valid request", LoginRequest{"alice", "secret"}, false},
		{"Unicode username", LoginRequest{"Zoé", "secret"}, false},
		{"Missing username", LoginRequest{"", "secret"}, true},
		{"Blank username", LoginRequest{"   ", "secret"}, true},
		{"Padded username", LoginRequest{" alice", "secret"}, true},
		{"Missing password", LoginRequest{"alice", ""}, true},
		{"Username too long", LoginRequest{strings.Repeat("a", 33), "secret"}, true},
		{"Password too long", LoginRequest{"alice", strings.Repeat("a", 73)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := ValidateLogin(tt.req)
			if tt.wantErr {
				req.ErrorIs(err, errors.ErrInvalidRequest)
			} else {
				req.NoError(err)
			}
		})
	}
}

func TestChatTextValidation(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"Plain text", "hello", false},
		{"Exactly max runes", strings.Repeat("é", 10), false},
		{"Empty", "", true},
		{"Blank", " \t ", true},
		{"Too long", strings.Repeat("a", 11), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := ValidateChatText(tt.text, 10)
			if tt.wantErr {
				req.ErrorIs(err, errors.ErrInvalidFrame)
			} else {
				req.NoError(err)
			}
		})
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.GenerateToken("user-123", "alice")
	req.NoError(err)

	claims, err := issuer.ValidateToken(token)
	req.NoError(err)
	req.Equal("user-123", claims.UserID)
	req.Equal("alice", claims.Username)
}

func TestTokenIssuer_Rejects_Foreign_Secret(t *testing.T) {
	req := require.New(t)
	token, err := NewTokenIssuer("other-secret", time.Hour).GenerateToken("user-123", "alice")
	req.NoError(err)

	_, err = NewTokenIssuer("test-secret", time.Hour).ValidateToken(token)

	req.Error(err)
}

func TestTokenIssuer_Rejects_Expired_Token(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("test-secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := issuer.GenerateToken("user-123", "alice")
	req.NoError(err)

	issuer.now = time.Now
	_, err = issuer.ValidateToken(token)

	req.Error(err)
}

func TestTokenIssuer_Rejects_Garbage(t *testing.T) {
	req := require.New(t)

	_, err := NewTokenIssuer("test-secret", time.Hour).ValidateToken("invalid-token-string")

	req.Error(err)
}

// BenchmarkHashPassword measures the argon2id cost of one login
func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!")
	}
}
