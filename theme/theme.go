// Package theme pushes a tenant's whitelabel palette into the active
// document as visual custom properties and keeps the chosen palette in a
// durable entry so the first paint after a restart never shows an unstyled
// page.
package theme

import "time"

// Shades is the fixed set of shade steps the abstract color roles are
// mapped over.
var Shades = []string{"50", "100", "200", "300", "400", "500", "600", "700", "800", "900", "950"}

// Palette defaults used before any tenant resolves.
const (
	DefaultPrimaryColor   = "amber"
	DefaultSecondaryColor = "zinc"
)

// SettingsEntryName is the durable entry holding the persisted palette.
const SettingsEntryName = "whitelabel-settings"

// Settings is the persisted theming state. UpdatedAt is bookkeeping only
// and never participates in the dirty check.
type Settings struct {
	PrimaryColor   string    `json:"primaryColor"`
	SecondaryColor string    `json:"secondaryColor"`
	Logo           string    `json:"logo,omitempty"`
	Name           string    `json:"name,omitempty"`
	TradeName      string    `json:"tradeName,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// SameAs reports field-level equality ignoring UpdatedAt. This comparison
// is the sole loop-breaking mechanism between the applied and persisted
// palette representations.
func (s Settings) SameAs(other Settings) bool {
	return s.PrimaryColor == other.PrimaryColor &&
		s.SecondaryColor == other.SecondaryColor &&
		s.Logo == other.Logo &&
		s.Name == other.Name &&
		s.TradeName == other.TradeName
}

// Surface receives visual custom properties. The production surface is the
// active document; tests use a recording fake.
type Surface interface {
	SetProperty(name, value string)
}
