// Package tenants resolves and caches the current tenant's profile and
// branding, and feeds resolved palettes into the theme applier.
package tenants

// Tenant is the organization-scoped profile returned by the backend.
type Tenant struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	TradeName      string `json:"tradeName,omitempty"`
	Document       string `json:"document,omitempty"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	WhatsApp       string `json:"whatsapp,omitempty"`
	City           string `json:"city,omitempty"`
	State          string `json:"state,omitempty"`
	ZipCode        string `json:"zipCode,omitempty"`
	Logo           string `json:"logo,omitempty"`
	PrimaryColor   string `json:"primaryColor,omitempty"`
	SecondaryColor string `json:"secondaryColor,omitempty"`
	PixKey         string `json:"pixKey,omitempty"`
	Slug           string `json:"slug,omitempty"`
	Plan           string `json:"plan,omitempty"`
	TrialEndsAt    string `json:"trialEndsAt,omitempty"`
	IsActive       bool   `json:"isActive,omitempty"`
	CreatedAt      string `json:"createdAt,omitempty"`
	UpdatedAt      string `json:"updatedAt,omitempty"`
}

// Branding is the subset of tenant data relevant to theming, independently
// cacheable from the full profile.
type Branding struct {
	ID             string
	Name           string
	TradeName      string
	PrimaryColor   string
	SecondaryColor string
	Logo           string
}

func (t *Tenant) Branding() Branding {
	return Branding{
		ID:             t.ID,
		Name:           t.Name,
		TradeName:      t.TradeName,
		PrimaryColor:   t.PrimaryColor,
		SecondaryColor: t.SecondaryColor,
		Logo:           t.Logo,
	}
}

// HasPalette reports whether both brand colors are present, the condition
// for delegating to the theme applier.
func (t *Tenant) HasPalette() bool {
	return t.PrimaryColor != "" && t.SecondaryColor != ""
}
