// Package users defines the sanitized user projection the client keeps in
// its session. The durable store has a hard size ceiling, so only this
// closed set of fields may ever be persisted; anything else the backend
// returns is dropped at the decoding boundary.
package users

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Role is the fixed-shape permission set attached to a user.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	CanViewAllCards        bool `json:"canViewAllCards"`
	CanManageTeam          bool `json:"canManageTeam"`
	CanManageClients       bool `json:"canManageClients"`
	CanManageSettings      bool `json:"canManageSettings"`
	CanExportData          bool `json:"canExportData"`
	CanDeleteRecords       bool `json:"canDeleteRecords"`
	CanCreateIR            bool `json:"canCreateIR"`
	CanEditIR              bool `json:"canEditIR"`
	CanMoveToFinalColumn   bool `json:"canMoveToFinalColumn"`
	CanImportDocs          bool `json:"canImportDocs"`
	CanViewFinancialCharts bool `json:"canViewFinancialCharts"`
	CanViewDrive           bool `json:"canViewDrive"`
	CanManageChecklist     bool `json:"canManageChecklist"`
	CanManageKanban        bool `json:"canManageKanban"`
	CanViewSensitiveData   bool `json:"canViewSensitiveData"`
}

// TenantSummary is the tenant slice embedded in the user record.
type TenantSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	TradeName      string `json:"tradeName,omitempty"`
	Document       string `json:"document,omitempty"`
	Logo           string `json:"logo,omitempty"`
	PrimaryColor   string `json:"primaryColor,omitempty"`
	SecondaryColor string `json:"secondaryColor,omitempty"`
	PixKey         string `json:"pixKey,omitempty"`
	Slug           string `json:"slug,omitempty"`
}

// User is the sanitized projection of the backend user record. Its fields
// are the complete set allowed into durable storage.
type User struct {
	ID               string          `json:"id"`
	Name             string          `json:"name,omitempty"`
	Email            string          `json:"email,omitempty"`
	Photo            string          `json:"photo,omitempty"`
	OnboardingStatus string          `json:"onboardingStatus,omitempty"`
	UserType         string          `json:"userType,omitempty"`
	IsAdmin          bool            `json:"isAdmin,omitempty"`
	Level            string          `json:"level,omitempty"`
	TenantID         string          `json:"tenantId,omitempty"`
	AffiliateProfile json.RawMessage `json:"affiliateProfile,omitempty"`
	Role             *Role           `json:"role,omitempty"`
	Tenant           *TenantSummary  `json:"tenant,omitempty"`
}

// Sanitize decodes a raw backend user record into the closed projection.
// Fields outside the projection never survive the decode, which is what
// keeps the persisted session under the durable store size ceiling.
func Sanitize(raw json.RawMessage) (*User, error) {
	if len(raw) == 0 {
		return nil, errors.New("[users.Sanitize] empty user record")
	}

	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, errors.Wrap(err, "[users.Sanitize] json.Unmarshal")
	}
	if u.ID == "" {
		return nil, errors.New("[users.Sanitize] user record has no id")
	}
	return &u, nil
}

// Can reports whether the user's role grants the capability returned by
// pick. Users without a role have no capabilities.
func (u *User) Can(pick func(Role) bool) bool {
	if u == nil || u.Role == nil {
		return false
	}
	return pick(*u.Role)
}

// HasTenant reports whether the user is linked to tenantID.
func (u *User) HasTenant(tenantID string) bool {
	if tenantID == "" {
		return true
	}
	if u.TenantID == tenantID {
		return true
	}
	return u.Tenant != nil && u.Tenant.ID == tenantID
}
