package auth

import (
	"context"
	"sync"

	"golang.org/x/oauth2"
)

// RefreshableProvider wraps an oauth2.TokenSource (client-credentials,
// refresh-token, or any other grant the caller has already wired) to give
// the Auth Coordinator a real silent-refresh path. RedirectToAuthorization
// is only reached when the wrapped source itself fails.
type RefreshableProvider struct {
	mu          sync.Mutex
	source      oauth2.TokenSource
	verifier    string
	clientInfo  ClientInformation
	redirectURL string
	metadata    ClientMetadata
	onRedirect  func(ctx context.Context, authorizationURL string) error
}

// NewRefreshableProvider builds a RefreshableProvider around source. source
// is typically an oauth2.Config's TokenSource seeded with a stored refresh
// token, or any other long-lived credential exchange.
func NewRefreshableProvider(source oauth2.TokenSource, clientInfo ClientInformation, redirectURL string, metadata ClientMetadata, onRedirect func(ctx context.Context, authorizationURL string) error) *RefreshableProvider {
	return &RefreshableProvider{
		source:      source,
		clientInfo:  clientInfo,
		redirectURL: redirectURL,
		metadata:    metadata,
		onRedirect:  onRedirect,
	}
}

func (p *RefreshableProvider) Tokens(context.Context) (*oauth2.Token, bool) {
	tok, err := p.source.Token()
	if err != nil || tok == nil {
		return nil, false
	}
	return tok, true
}

func (p *RefreshableProvider) ClientInformation(context.Context) (ClientInformation, bool) {
	return p.clientInfo, p.clientInfo.ClientID != ""
}

// SaveTokens is a no-op: the wrapped oauth2.TokenSource owns token storage
// and refresh, typically an oauth2.ReuseTokenSource over an oauth2.Config.
func (p *RefreshableProvider) SaveTokens(context.Context, *oauth2.Token) error {
	return nil
}

func (p *RefreshableProvider) SaveCodeVerifier(_ context.Context, verifier string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.verifier = verifier
	return nil
}

func (p *RefreshableProvider) CodeVerifier(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.verifier, nil
}

// Refresh asks the wrapped TokenSource for a token. oauth2.TokenSource
// implementations refresh transparently when the current token is expired,
// so this is a genuine silent refresh whenever the source holds a refresh
// token.
func (p *RefreshableProvider) Refresh(context.Context) (*oauth2.Token, error) {
	return p.source.Token()
}

func (p *RefreshableProvider) RedirectToAuthorization(ctx context.Context, authorizationURL string) error {
	if p.onRedirect == nil {
		return nil
	}
	return p.onRedirect(ctx, authorizationURL)
}

func (p *RefreshableProvider) RedirectURL() string {
	return p.redirectURL
}

func (p *RefreshableProvider) ClientMetadata() ClientMetadata {
	return p.metadata
}
