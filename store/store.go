// Package store provides the durable client-side key/value primitives the
// SDK persists sessions and theme settings into. Entries behave like browser
// cookies: named string values with a max-age, path, secure flag and
// same-site policy, surviving process restarts.
package store

import "time"

type SameSite string

const (
	SameSiteLax    SameSite = "Lax"
	SameSiteStrict SameSite = "Strict"
	SameSiteNone   SameSite = "None"
)

// Attributes carry the transport/persistence policy of a durable entry.
type Attributes struct {
	MaxAge   time.Duration
	Path     string
	Secure   bool
	SameSite SameSite
}

// SessionAttributes returns the shared policy used for the session entries:
// same-site lax for cross-navigation, secure flag on in production builds.
func SessionAttributes(maxAge time.Duration, secure bool) Attributes {
	return Attributes{
		MaxAge:   maxAge,
		Path:     "/",
		Secure:   secure,
		SameSite: SameSiteLax,
	}
}

// Store is a durable client-side key/value store. Implementations must treat
// expired entries as absent. A Set is not guaranteed to be readable back
// (the underlying medium may silently drop writes, as browsers do when
// cookies are disabled); callers that need durability confirmation must
// re-read after writing.
type Store interface {
	Set(name, value string, attrs Attributes) error
	Get(name string) (string, bool, error)
	Delete(name string) error
}
