package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestInMemoryProviderTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	p := NewInMemoryProvider(ClientInformation{ClientID: "client-1"}, "https://example.com/callback", ClientMetadata{ClientName: "test"}, nil)

	_, ok := p.Tokens(ctx)
	assert.False(t, ok)

	tok := &oauth2.Token{AccessToken: "at-1", RefreshToken: "rt-1"}
	require.NoError(t, p.SaveTokens(ctx, tok))

	got, ok := p.Tokens(ctx)
	require.True(t, ok)
	assert.Equal(t, "at-1", got.AccessToken)
}

func TestInMemoryProviderCodeVerifierRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := NewInMemoryProvider(ClientInformation{}, "", ClientMetadata{}, nil)

	_, err := p.CodeVerifier(ctx)
	assert.Error(t, err)

	require.NoError(t, p.SaveCodeVerifier(ctx, "verifier-abc"))
	v, err := p.CodeVerifier(ctx)
	require.NoError(t, err)
	assert.Equal(t, "verifier-abc", v)
}

func TestInMemoryProviderRedirectCallsHook(t *testing.T) {
	ctx := context.Background()
	called := false
	p := NewInMemoryProvider(ClientInformation{}, "", ClientMetadata{}, func(_ context.Context, url string) error {
		called = true
		assert.Equal(t, "https://auth.example.com/authorize", url)
		return nil
	})

	require.NoError(t, p.RedirectToAuthorization(ctx, "https://auth.example.com/authorize"))
	assert.True(t, called)
}

func TestInMemoryProviderRedirectNoopWithoutHook(t *testing.T) {
	p := NewInMemoryProvider(ClientInformation{}, "", ClientMetadata{}, nil)
	assert.NoError(t, p.RedirectToAuthorization(context.Background(), "https://auth.example.com/authorize"))
}
