package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/fivetwenty-io/armclient/internal/constants"
)

// Credential methods understood by NewCredential.
const (
	MethodCLI          = "cli"
	MethodDefault      = "default"
	MethodClientSecret = "client-secret"
)

// CredentialOptions selects and configures an Entra ID credential.
type CredentialOptions struct {
	Method       string
	TenantID     string
	ClientID     string
	ClientSecret string
}

// NewCredential builds an azidentity credential for the requested method.
func NewCredential(opts CredentialOptions) (azcore.TokenCredential, error) {
	switch opts.Method {
	case MethodCLI:
		cred, err := azidentity.NewAzureCLICredential(&azidentity.AzureCLICredentialOptions{
			TenantID: opts.TenantID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure CLI credential: %w", err)
		}

		return cred, nil
	case MethodDefault, "":
		cred, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
			TenantID: opts.TenantID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create default Azure credential: %w", err)
		}

		return cred, nil
	case MethodClientSecret:
		if opts.TenantID == "" || opts.ClientID == "" || opts.ClientSecret == "" {
			return nil, constants.ErrClientSecretRequired
		}

		cred, err := azidentity.NewClientSecretCredential(opts.TenantID, opts.ClientID, opts.ClientSecret, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create client secret credential: %w", err)
		}

		return cred, nil
	default:
		return nil, fmt.Errorf("%w: %q", constants.ErrUnknownAuthMethod, opts.Method)
	}
}

// CredentialTokenManager caches tokens obtained from an azcore.TokenCredential.
type CredentialTokenManager struct {
	credential azcore.TokenCredential
	scopes     []string
	store      *TokenStore
	mutex      sync.Mutex
}

var _ TokenManager = (*CredentialTokenManager)(nil)

// NewCredentialTokenManager creates a manager requesting tokens for scopes.
// Resource Manager's scope is used when none are given.
func NewCredentialTokenManager(credential azcore.TokenCredential, scopes ...string) *CredentialTokenManager {
	if len(scopes) == 0 {
		scopes = []string{constants.DefaultScope}
	}

	return &CredentialTokenManager{
		credential: credential,
		scopes:     scopes,
		store:      NewTokenStore(),
	}
}

// GetToken returns a cached token or acquires a new one.
func (m *CredentialTokenManager) GetToken(ctx context.Context) (string, error) {
	if token := m.store.Get(); token.Valid() {
		return token.AccessToken, nil
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	// Another caller may have refreshed while we waited.
	if token := m.store.Get(); token.Valid() {
		return token.AccessToken, nil
	}

	err := m.acquire(ctx)
	if err != nil {
		return "", err
	}

	return m.store.Get().AccessToken, nil
}

// RefreshToken discards the cached token and acquires a new one.
func (m *CredentialTokenManager) RefreshToken(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.store.Clear()

	return m.acquire(ctx)
}

// SetToken seeds the cache, for example with a token restored from disk.
func (m *CredentialTokenManager) SetToken(token string, expiresAt time.Time) {
	m.store.Set(&Token{AccessToken: token, TokenType: "Bearer", ExpiresAt: expiresAt})
}

func (m *CredentialTokenManager) acquire(ctx context.Context) error {
	accessToken, err := m.credential.GetToken(ctx, policy.TokenRequestOptions{Scopes: m.scopes})
	if err != nil {
		return fmt.Errorf("failed to acquire token: %w", err)
	}

	m.store.Set(&Token{
		AccessToken: accessToken.Token,
		TokenType:   "Bearer",
		ExpiresAt:   accessToken.ExpiresOn,
	})

	return nil
}
