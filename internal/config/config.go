package config

import "time"

// Config exposes the environment-derived settings the SDK components need.
type Config interface {
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
	IsProduction() bool
	GetDataFolder() string

	// Durable store policies
	GetSessionMaxAge() time.Duration
	GetThemeMaxAge() time.Duration

	// Routing
	GetLandingRoute() string
	GetOnboardingRedirectRoute() string

	// Tenant resolution
	GetTenantQueryParam() string
	GetReservedSubdomains() []string
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
