// Package auth defines the client-side OAuth provider contract the
// streamable HTTP transport uses to recover from 401 responses, plus a
// default in-memory implementation and a PKCE code-verifier helper.
package auth

import (
	"context"

	"golang.org/x/oauth2"
)

// ClientInformation identifies a registered OAuth client for token refresh.
type ClientInformation struct {
	ClientID     string
	ClientSecret string
}

// ClientMetadata is the static client registration metadata sent during the
// authorization code exchange.
type ClientMetadata struct {
	ClientName   string
	RedirectURIs []string
	Scope        string
}

// OAuthClientProvider supplies tokens for the Authorization header and
// coordinates recovery when the server responds with 401. The transport
// never inspects token internals beyond AccessToken; refresh, persistence,
// and interactive redirect are entirely the provider's responsibility.
type OAuthClientProvider interface {
	// Tokens returns the current token record, or ok=false if none has ever
	// been saved.
	Tokens(ctx context.Context) (tok *oauth2.Token, ok bool)

	// ClientInformation returns the registered client id/secret used to
	// refresh an expired token.
	ClientInformation(ctx context.Context) (ClientInformation, bool)

	// SaveTokens persists a token record obtained from a refresh or an
	// authorization code exchange.
	SaveTokens(ctx context.Context, tok *oauth2.Token) error

	// SaveCodeVerifier and CodeVerifier persist and retrieve the PKCE code
	// verifier across the redirect round trip.
	SaveCodeVerifier(ctx context.Context, verifier string) error
	CodeVerifier(ctx context.Context) (string, error)

	// Refresh attempts to obtain a new access token using stored refresh
	// credentials, without any user interaction. A non-nil error means no
	// silent refresh was possible; the transport then falls back to
	// RedirectToAuthorization.
	Refresh(ctx context.Context) (*oauth2.Token, error)

	// RedirectToAuthorization is invoked when a 401 cannot be resolved by a
	// silent refresh. It should start an out-of-band user consent flow
	// (open a browser, print a URL); the transport does not wait for it to
	// complete and fails the current send with an Unauthorized error.
	RedirectToAuthorization(ctx context.Context, authorizationURL string) error

	// RedirectURL and ClientMetadata are the static identifiers used to
	// build the authorization request.
	RedirectURL() string
	ClientMetadata() ClientMetadata
}
