package tenants

import (
	"context"
	"encoding/json"
	"net"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	errs "github.com/irdesk/go-client/internal/errors"
)

// ResolveBySubdomain inspects the current navigation location, extracts a
// candidate tenant slug and performs an unauthenticated public lookup.
// Resolved branding is applied and persisted. Returns ErrNoSubdomain when
// the location carries no candidate slug.
func (tc *Context) ResolveBySubdomain(ctx context.Context, location string) (*Tenant, error) {
	slug, ok := tc.slugFromLocation(location)
	if !ok {
		return nil, errs.ErrNoSubdomain
	}

	// Stamped before the request goes out, like fetch: a lookup that is
	// overtaken by a newer fetch while in flight must not install its
	// response over the fresher snapshot.
	generation := tc.nextGeneration()

	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := tc.backend.Get(ctx, publicTenantPath+url.PathEscape(slug), &resp); err != nil {
		return nil, err
	}
	if !resp.Success || len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil, errors.Wrap(errs.ErrTenantNotFound, slug)
	}

	var t Tenant
	if err := json.Unmarshal(resp.Data, &t); err != nil {
		return nil, errors.Wrap(err, "[Context.ResolveBySubdomain] json.Unmarshal")
	}

	if tc.store(generation, &t) {
		tc.applyBranding(&t)
	}
	return &t, nil
}

// slugFromLocation extracts a tenant slug from a navigation URL. An
// explicit query parameter wins (local testing); otherwise the first label
// of a three-or-more-label hostname is the candidate, unless reserved.
// localhost and bare IPs never carry a slug.
func (tc *Context) slugFromLocation(location string) (string, bool) {
	parsed, err := url.Parse(location)
	if err != nil {
		return "", false
	}

	if override := parsed.Query().Get(tc.queryParam); override != "" {
		return strings.ToLower(override), true
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" || host == "localhost" || net.ParseIP(host) != nil {
		return "", false
	}

	labels := strings.Split(host, ".")
	if len(labels) < 3 {
		return "", false
	}

	candidate := labels[0]
	if _, reserved := tc.reserved[candidate]; reserved {
		return "", false
	}
	return candidate, true
}
