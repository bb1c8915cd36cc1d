package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeTokenSource struct {
	tok *oauth2.Token
	err error
}

func (f *fakeTokenSource) Token() (*oauth2.Token, error) {
	return f.tok, f.err
}

func TestRefreshableProviderDelegatesToSource(t *testing.T) {
	src := &fakeTokenSource{tok: &oauth2.Token{AccessToken: "refreshed-at"}}
	p := NewRefreshableProvider(src, ClientInformation{ClientID: "client-1"}, "https://example.com/callback", ClientMetadata{}, nil)

	got, ok := p.Tokens(context.Background())
	require.True(t, ok)
	assert.Equal(t, "refreshed-at", got.AccessToken)

	tok, err := p.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refreshed-at", tok.AccessToken)
}

func TestRefreshableProviderPropagatesSourceError(t *testing.T) {
	src := &fakeTokenSource{err: assert.AnError}
	p := NewRefreshableProvider(src, ClientInformation{}, "", ClientMetadata{}, nil)

	_, ok := p.Tokens(context.Background())
	assert.False(t, ok)

	_, err := p.Refresh(context.Background())
	assert.Error(t, err)
}
