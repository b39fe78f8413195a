package tenants

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/irdesk/go-client/api"
	"github.com/irdesk/go-client/theme"
)

const (
	tenantPath       = "/tenant"
	publicTenantPath = "/public/tenant/"

	fetchKey = "tenant"
)

// Context owns the in-memory tenant snapshot. Fetches are cache-first and
// collapse into a single in-flight request; responses are generation
// stamped so a superseded fetch resolving late cannot overwrite a newer
// snapshot.
type Context struct {
	client  *api.Client
	backend *api.Backend
	applier *theme.Applier
	logger  zerolog.Logger

	queryParam string
	reserved   map[string]struct{}

	group singleflight.Group

	lock       sync.Mutex
	current    *Tenant
	generation uint64
	applied    uint64
}

type ContextOption func(*Context)

func WithContextLogger(logger zerolog.Logger) ContextOption {
	return func(tc *Context) {
		tc.logger = logger
	}
}

// WithQueryParam sets the query parameter that overrides subdomain slug
// extraction for local testing.
func WithQueryParam(param string) ContextOption {
	return func(tc *Context) {
		tc.queryParam = param
	}
}

// WithReservedSubdomains sets the hostname labels never treated as tenant
// slugs.
func WithReservedSubdomains(labels []string) ContextOption {
	return func(tc *Context) {
		tc.reserved = make(map[string]struct{}, len(labels))
		for _, label := range labels {
			tc.reserved[strings.ToLower(label)] = struct{}{}
		}
	}
}

// NewContext initializes a tenant context with required dependencies.
func NewContext(client *api.Client, backend *api.Backend, applier *theme.Applier, options ...ContextOption) (*Context, error) {
	if client == nil {
		return nil, errors.New("[tenants.NewContext] client is required")
	}
	if backend == nil {
		return nil, errors.New("[tenants.NewContext] backend is required")
	}
	if applier == nil {
		return nil, errors.New("[tenants.NewContext] theme applier is required")
	}

	tc := &Context{
		client:     client,
		backend:    backend,
		applier:    applier,
		logger:     zerolog.Nop(),
		queryParam: "tenant",
		reserved: map[string]struct{}{
			"www": {}, "app": {}, "api": {}, "admin": {}, "auth": {}, "staging": {}, "dev": {},
		},
	}
	for _, opt := range options {
		opt(tc)
	}
	return tc, nil
}

// Current returns the cached tenant snapshot without any network call.
func (tc *Context) Current() *Tenant {
	tc.lock.Lock()
	defer tc.lock.Unlock()
	return tc.current
}

// GetOrFetch returns the cached tenant if one is resolved; otherwise it
// performs an authenticated fetch. Concurrent callers share one in-flight
// request.
func (tc *Context) GetOrFetch(ctx context.Context) (*Tenant, error) {
	if t := tc.Current(); t != nil {
		return t, nil
	}
	return tc.fetch(ctx)
}

// ForceRefresh bypasses the cache-first short-circuit.
func (tc *Context) ForceRefresh(ctx context.Context) (*Tenant, error) {
	return tc.fetch(ctx)
}

// Branding returns theming data for the current tenant, falling back to the
// persisted theme settings when no tenant has resolved yet. The persisted
// settings are the single source of truth for theming; this derivation is
// one-directional, so no watcher pair (and no loop) exists between them.
func (tc *Context) Branding() Branding {
	if t := tc.Current(); t != nil {
		return t.Branding()
	}
	if s := tc.applier.Settings(); s != nil {
		return Branding{
			Name:           s.Name,
			TradeName:      s.TradeName,
			PrimaryColor:   s.PrimaryColor,
			SecondaryColor: s.SecondaryColor,
			Logo:           s.Logo,
		}
	}
	return Branding{
		PrimaryColor:   theme.DefaultPrimaryColor,
		SecondaryColor: theme.DefaultSecondaryColor,
	}
}

func (tc *Context) fetch(ctx context.Context) (*Tenant, error) {
	result, err, _ := tc.group.Do(fetchKey, func() (any, error) {
		generation := tc.nextGeneration()

		var raw json.RawMessage
		if err := tc.client.Get(ctx, tenantPath, &raw); err != nil {
			return nil, err
		}

		t, err := unwrapTenant(raw)
		if err != nil {
			return nil, err
		}

		if tc.store(generation, t) {
			tc.applyBranding(t)
		}
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Tenant), nil
}

func (tc *Context) nextGeneration() uint64 {
	tc.lock.Lock()
	defer tc.lock.Unlock()
	tc.generation++
	return tc.generation
}

// store installs the snapshot unless a newer fetch already did.
func (tc *Context) store(generation uint64, t *Tenant) bool {
	tc.lock.Lock()
	defer tc.lock.Unlock()

	if generation < tc.applied {
		tc.logger.Debug().Uint64("generation", generation).Msg("dropping stale tenant response")
		return false
	}
	tc.applied = generation
	tc.current = t
	return true
}

// applyBranding delegates to the theme applier with persistence enabled.
// Theming failures never fail the fetch; the tenant data is still good.
func (tc *Context) applyBranding(t *Tenant) {
	if !t.HasPalette() {
		return
	}
	err := tc.applier.Apply(
		t.PrimaryColor,
		t.SecondaryColor,
		theme.WithLogo(t.Logo),
		theme.WithName(t.Name),
		theme.WithTradeName(t.TradeName),
	)
	if err != nil {
		tc.logger.Err(err).Msg("applying tenant branding")
	}
}

// The backend usually wraps the tenant in a one-level {data: ...} envelope
// but sometimes returns it bare.
func unwrapTenant(raw json.RawMessage) (*Tenant, error) {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 && string(env.Data) != "null" {
		raw = env.Data
	}

	var t Tenant
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, errors.Wrap(err, "[tenants.unwrapTenant] json.Unmarshal")
	}
	return &t, nil
}
