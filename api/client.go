package api

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	errs "github.com/irdesk/go-client/internal/errors"
)

// Client wraps Backend with bearer authorization. The credential is pulled
// from the token source at call time, never captured at construction, so a
// long-lived client always sends the current session's token. A 401
// response forcibly terminates the session through the unauthorized
// handler before the error propagates.
type Client struct {
	backend        *Backend
	tokens         oauth2.TokenSource
	onUnauthorized func()
}

// NewClient builds an authenticated client over backend. tokens is
// typically the session store itself.
func NewClient(backend *Backend, tokens oauth2.TokenSource) (*Client, error) {
	if backend == nil {
		return nil, errors.New("[NewClient] backend is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewClient] token source is required")
	}
	return &Client{backend: backend, tokens: tokens}, nil
}

// SetUnauthorizedHandler registers the forced-logout hook. Set after the
// auth service is constructed; the two reference each other.
func (c *Client) SetUnauthorizedHandler(handler func()) {
	c.onUnauthorized = handler
}

// Request merges a bearer header derived from the current token into the
// caller's headers. Caller headers take precedence on conflict.
func (c *Client) Request(ctx context.Context, method, path string, body any, headers http.Header, out any) error {
	merged := http.Header{}
	if tok, err := c.tokens.Token(); err == nil && tok.AccessToken != "" {
		merged.Set("Authorization", "Bearer "+tok.AccessToken)
	}
	for key, values := range headers {
		merged.Del(key)
		for _, v := range values {
			merged.Add(key, v)
		}
	}

	err := c.backend.Do(ctx, method, path, body, merged, out)
	if errors.Is(err, errs.ErrAuthorizationExpired) && c.onUnauthorized != nil {
		c.onUnauthorized()
	}
	return err
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Request(ctx, http.MethodGet, path, nil, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Request(ctx, http.MethodPost, path, body, nil, out)
}
