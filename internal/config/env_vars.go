package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	appNameVar            = "APP_NAME"
	baseURLVar            = "API_BASE_URL"
	envVar                = "ENV"
	folderEnvVar          = "FOLDER"
	sessionMaxAgeVar      = "SESSION_MAX_AGE_SECONDS"
	themeMaxAgeVar        = "THEME_MAX_AGE_SECONDS"
	landingRouteVar       = "LANDING_ROUTE"
	onboardingRouteVar    = "ONBOARDING_REDIRECT_ROUTE"
	tenantQueryParamVar   = "TENANT_QUERY_PARAM"
	reservedSubdomainsVar = "RESERVED_SUBDOMAINS"
)

const (
	defaultSessionMaxAge = 7 * 24 * time.Hour
	defaultThemeMaxAge   = 30 * 24 * time.Hour
)

type EnvVars struct{}

var _ Config = mainConfig{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "IRDesk Client")
}

func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv(envVar)
	if env == "" {
		return "DEV"
	}
	return env
}

func (e EnvVars) IsProduction() bool {
	return strings.EqualFold(e.GetEnv(), "production") || strings.EqualFold(e.GetEnv(), "prod")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

func (EnvVars) GetSessionMaxAge() time.Duration {
	return durationEnv(sessionMaxAgeVar, defaultSessionMaxAge)
}

func (EnvVars) GetThemeMaxAge() time.Duration {
	return durationEnv(themeMaxAgeVar, defaultThemeMaxAge)
}

func (EnvVars) GetLandingRoute() string {
	return GetEnv(landingRouteVar, "/")
}

// GetOnboardingRedirectRoute is configuration rather than contract: the
// destination for "onboarding pending with an active plan" users.
func (EnvVars) GetOnboardingRedirectRoute() string {
	return GetEnv(onboardingRouteVar, "/onboarding")
}

func (EnvVars) GetTenantQueryParam() string {
	return GetEnv(tenantQueryParamVar, "tenant")
}

func (EnvVars) GetReservedSubdomains() []string {
	raw := GetEnv(reservedSubdomainsVar, "www,app,api,admin,auth,staging,dev")
	parts := strings.Split(raw, ",")
	reserved := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			reserved = append(reserved, trimmed)
		}
	}
	return reserved
}

func durationEnv(envVarName string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(envVarName)
	if raw == "" {
		return defaultValue
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return defaultValue
	}
	return time.Duration(seconds) * time.Second
}

func GetEnv(envVarName, defaultValue string) string {
	value := os.Getenv(envVarName)
	if value == "" {
		return defaultValue
	}
	return value
}
