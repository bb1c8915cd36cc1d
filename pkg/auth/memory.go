package auth

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
)

// InMemoryProvider is a default OAuthClientProvider that keeps tokens and
// the PKCE code verifier in process memory. It is suitable for CLIs and
// short-lived processes; long-lived services should implement
// OAuthClientProvider against durable storage instead.
type InMemoryProvider struct {
	mu          sync.Mutex
	tok         *oauth2.Token
	verifier    string
	clientInfo  ClientInformation
	redirectURL string
	metadata    ClientMetadata
	onRedirect  func(ctx context.Context, authorizationURL string) error
}

// NewInMemoryProvider builds an InMemoryProvider. onRedirect is called when
// a 401 cannot be resolved by refresh; a nil onRedirect makes
// RedirectToAuthorization a no-op that still lets the transport surface an
// Unauthorized error to the caller.
func NewInMemoryProvider(clientInfo ClientInformation, redirectURL string, metadata ClientMetadata, onRedirect func(ctx context.Context, authorizationURL string) error) *InMemoryProvider {
	return &InMemoryProvider{
		clientInfo:  clientInfo,
		redirectURL: redirectURL,
		metadata:    metadata,
		onRedirect:  onRedirect,
	}
}

func (p *InMemoryProvider) Tokens(context.Context) (*oauth2.Token, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tok, p.tok != nil
}

func (p *InMemoryProvider) ClientInformation(context.Context) (ClientInformation, bool) {
	return p.clientInfo, p.clientInfo.ClientID != ""
}

func (p *InMemoryProvider) SaveTokens(_ context.Context, tok *oauth2.Token) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tok = tok
	return nil
}

func (p *InMemoryProvider) SaveCodeVerifier(_ context.Context, verifier string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.verifier = verifier
	return nil
}

func (p *InMemoryProvider) CodeVerifier(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.verifier == "" {
		return "", fmt.Errorf("no code verifier saved")
	}
	return p.verifier, nil
}

// Refresh always reports that no silent refresh is possible; an
// InMemoryProvider has no refresh endpoint of its own. Callers that need
// silent refresh should wrap an oauth2.TokenSource with RefreshableProvider
// instead.
func (p *InMemoryProvider) Refresh(context.Context) (*oauth2.Token, error) {
	return nil, fmt.Errorf("in-memory provider cannot refresh silently")
}

func (p *InMemoryProvider) RedirectToAuthorization(ctx context.Context, authorizationURL string) error {
	if p.onRedirect == nil {
		return nil
	}
	return p.onRedirect(ctx, authorizationURL)
}

func (p *InMemoryProvider) RedirectURL() string {
	return p.redirectURL
}

func (p *InMemoryProvider) ClientMetadata() ClientMetadata {
	return p.metadata
}
