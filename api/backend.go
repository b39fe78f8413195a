// Package api is the HTTP boundary with the backend. Backend performs the
// raw calls and normalizes the backend's in-band error convention into
// typed failures; Client layers bearer authorization and forced logout on
// 401 over it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	errs "github.com/irdesk/go-client/internal/errors"
	"github.com/irdesk/go-client/internal/utils"
)

const defaultTimeout = 30 * time.Second

// Backend issues JSON requests against the configured base URL. It carries
// no credentials; authenticated traffic goes through Client.
type Backend struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

type BackendOption func(*Backend)

func WithHTTPClient(c *http.Client) BackendOption {
	return func(b *Backend) {
		b.httpClient = c
	}
}

func WithLogger(logger zerolog.Logger) BackendOption {
	return func(b *Backend) {
		b.logger = logger
	}
}

// NewBackend creates a backend for baseURL (no trailing slash required).
func NewBackend(baseURL string, options ...BackendOption) (*Backend, error) {
	if baseURL == "" {
		return nil, errors.New("[NewBackend] baseURL is required")
	}

	b := &Backend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(b)
	}
	return b, nil
}

// Do sends method path with an optional JSON body and decodes the response
// into out (when non-nil). Failure taxonomy:
//   - transport failure: *errs.TransportError with a normalized message
//   - HTTP 401: error chain containing errs.ErrAuthorizationExpired
//   - other non-2xx, or 2xx carrying error === 1: *errs.ApplicationError
func (b *Backend) Do(ctx context.Context, method, path string, body any, headers http.Header, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[Backend.Do] json.Marshal body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "[Backend.Do] http.NewRequestWithContext")
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range headers {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return &errs.TransportError{Message: normalizeMessage(err.Error()), Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errs.TransportError{Message: normalizeMessage(err.Error()), Err: err}
	}

	env, hasEnvelope := decodeEnvelope(payload)

	if resp.StatusCode == http.StatusUnauthorized {
		message := utils.FirstNonEmpty(string(env.Message), errs.ErrAuthorizationExpired.Error())
		return errors.Wrap(errs.ErrAuthorizationExpired, message)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &errs.ApplicationError{
			Message:    utils.FirstNonEmpty(string(env.Message), "error processing request"),
			Status:     env.Status,
			StatusCode: resp.StatusCode,
		}
	}

	if hasEnvelope && bool(env.Error) {
		b.logger.Debug().Str("path", path).Str("message", string(env.Message)).Msg("backend signaled in-band error")
		return &errs.ApplicationError{
			Message:    utils.FirstNonEmpty(string(env.Message), "error processing request"),
			Status:     env.Status,
			StatusCode: resp.StatusCode,
		}
	}

	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return errors.Wrap(err, "[Backend.Do] json.Unmarshal response")
		}
	}
	return nil
}

func (b *Backend) Get(ctx context.Context, path string, out any) error {
	return b.Do(ctx, http.MethodGet, path, nil, nil, out)
}

func (b *Backend) Post(ctx context.Context, path string, body, out any) error {
	return b.Do(ctx, http.MethodPost, path, body, nil, out)
}

// normalizeMessage keeps human-readable error text and replaces anything
// that just echoes the request URL or transport internals with a generic
// connection message.
func normalizeMessage(message string) string {
	if message == "" {
		return errs.GenericConnectionMessage
	}
	lowered := strings.ToLower(message)
	if strings.Contains(lowered, "http") || strings.Contains(lowered, "fetch") || strings.Contains(lowered, "dial") {
		return errs.GenericConnectionMessage
	}
	return message
}
