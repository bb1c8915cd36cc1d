package auth

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
)

// StaticTokenProvider serves one fixed token and never refreshes. Every 401
// falls straight through to RedirectToAuthorization; suitable for
// service-account bearer tokens issued out of band with no refresh grant.
type StaticTokenProvider struct {
	mu          sync.RWMutex
	tok         *oauth2.Token
	clientInfo  ClientInformation
	redirectURL string
	metadata    ClientMetadata
	onRedirect  func(ctx context.Context, authorizationURL string) error
}

// NewStaticTokenProvider builds a StaticTokenProvider around tok.
func NewStaticTokenProvider(tok *oauth2.Token, redirectURL string, onRedirect func(ctx context.Context, authorizationURL string) error) *StaticTokenProvider {
	return &StaticTokenProvider{
		tok:         tok,
		redirectURL: redirectURL,
		onRedirect:  onRedirect,
	}
}

func (p *StaticTokenProvider) Tokens(context.Context) (*oauth2.Token, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tok, p.tok != nil
}

func (p *StaticTokenProvider) ClientInformation(context.Context) (ClientInformation, bool) {
	return p.clientInfo, p.clientInfo.ClientID != ""
}

func (p *StaticTokenProvider) SaveTokens(_ context.Context, tok *oauth2.Token) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tok = tok
	return nil
}

func (p *StaticTokenProvider) SaveCodeVerifier(context.Context, string) error {
	return nil
}

func (p *StaticTokenProvider) CodeVerifier(context.Context) (string, error) {
	return "", fmt.Errorf("static token provider does not support the authorization code flow")
}

func (p *StaticTokenProvider) Refresh(context.Context) (*oauth2.Token, error) {
	return nil, fmt.Errorf("static token provider cannot refresh")
}

func (p *StaticTokenProvider) RedirectToAuthorization(ctx context.Context, authorizationURL string) error {
	if p.onRedirect == nil {
		return nil
	}
	return p.onRedirect(ctx, authorizationURL)
}

func (p *StaticTokenProvider) RedirectURL() string {
	return p.redirectURL
}

func (p *StaticTokenProvider) ClientMetadata() ClientMetadata {
	return p.metadata
}
