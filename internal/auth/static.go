package auth

import (
	"context"
	"errors"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

// Static errors for err113 compliance.
var (
	ErrStaticTokenCannotRefresh = errors.New("static token cannot be refreshed")
	ErrEmptyToken               = errors.New("access token is empty")
)

// StaticTokenManager always returns the same token.
type StaticTokenManager struct {
	store *TokenStore
}

var _ TokenManager = (*StaticTokenManager)(nil)

// NewStaticTokenManager wraps a pre-issued access token.
func NewStaticTokenManager(token string) *StaticTokenManager {
	store := NewTokenStore()
	store.Set(&Token{AccessToken: token, TokenType: "Bearer"})

	return &StaticTokenManager{store: store}
}

// GetToken returns the static token.
func (m *StaticTokenManager) GetToken(ctx context.Context) (string, error) {
	token := m.store.Get()
	if token == nil || token.AccessToken == "" {
		return "", ErrEmptyToken
	}

	return token.AccessToken, nil
}

// RefreshToken always fails; a static token has no way to renew itself.
func (m *StaticTokenManager) RefreshToken(ctx context.Context) error {
	return ErrStaticTokenCannotRefresh
}

// SetToken replaces the static token.
func (m *StaticTokenManager) SetToken(token string, expiresAt time.Time) {
	m.store.Set(&Token{AccessToken: token, TokenType: "Bearer", ExpiresAt: expiresAt})
}

// StaticCredential adapts a pre-issued token to azcore.TokenCredential so it
// can be used with azcore pipelines.
type StaticCredential struct {
	token     string
	expiresOn time.Time
}

var _ azcore.TokenCredential = (*StaticCredential)(nil)

// NewStaticCredential creates a credential for token. A zero expiresOn is
// reported as one hour from each call.
func NewStaticCredential(token string, expiresOn time.Time) *StaticCredential {
	return &StaticCredential{token: token, expiresOn: expiresOn}
}

// GetToken implements azcore.TokenCredential.
func (c *StaticCredential) GetToken(ctx context.Context, options policy.TokenRequestOptions) (azcore.AccessToken, error) {
	if c.token == "" {
		return azcore.AccessToken{}, ErrEmptyToken
	}

	expiresOn := c.expiresOn
	if expiresOn.IsZero() {
		expiresOn = time.Now().Add(time.Hour)
	}

	return azcore.AccessToken{Token: c.token, ExpiresOn: expiresOn}, nil
}
