package streamablehttp

import (
	"context"

	mcperrors "github.com/modelcontext-go/streamable-transport/pkg/errors"
)

// currentAccessToken returns the bearer token to attach to the next
// request, or "" if no auth provider is configured or it holds no token
// yet.
func (t *Transport) currentAccessToken(ctx context.Context) string {
	if t.cfg.authProvider == nil {
		return ""
	}
	tok, ok := t.cfg.authProvider.Tokens(ctx)
	if !ok || tok == nil {
		return ""
	}
	return tok.AccessToken
}

// resolveUnauthorized implements the Auth Coordinator (§4.5): on a 401 it
// tries a silent refresh; success means the caller should retry the
// original request once with the refreshed token. Failure means the
// provider is asked to redirect the user out-of-band and the send fails
// with Unauthorized.
func (t *Transport) resolveUnauthorized(ctx context.Context) error {
	endpoint := t.endpoint.String()

	if t.cfg.authProvider == nil {
		t.cfg.metrics.RecordAuthChallenge("unresolved")
		return mcperrors.Unauthorized(endpoint, "no auth provider configured")
	}

	tok, err := t.cfg.authProvider.Refresh(ctx)
	if err == nil && tok != nil {
		if saveErr := t.cfg.authProvider.SaveTokens(ctx, tok); saveErr != nil {
			t.cfg.logger.WithError(saveErr).Warn("failed to persist refreshed token")
		}
		t.cfg.metrics.RecordAuthChallenge("refreshed")
		return nil
	}

	t.cfg.metrics.RecordAuthChallenge("redirected")
	authorizationURL := t.cfg.authProvider.RedirectURL()
	if redirectErr := t.cfg.authProvider.RedirectToAuthorization(ctx, authorizationURL); redirectErr != nil {
		t.cfg.logger.WithError(redirectErr).Warn("redirectToAuthorization failed")
	}
	return mcperrors.Unauthorized(endpoint, "user interaction required")
}
