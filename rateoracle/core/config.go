package core

import (
	"os"
	"strings"

	oracleCore "github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/Ethernal-Tech/fx-oracle/telemetry"
)

type APIConfig struct {
	Port           uint32   `json:"port"`
	PathPrefix     string   `json:"pathPrefix"`
	AllowedHeaders []string `json:"allowedHeaders"`
	AllowedOrigins []string `json:"allowedOrigins"`
	AllowedMethods []string `json:"allowedMethods"`
	APIKeyHeader   string   `json:"apiKeyHeader"`
	APIKeys        []string `json:"apiKeys"`
}

// AppConfig is the service configuration: the engine sections plus the API and
// telemetry surface. The embedded engine config keeps config.json flat.
type AppConfig struct {
	oracleCore.AppConfig

	APIConfig APIConfig                 `json:"api"`
	Telemetry telemetry.TelemetryConfig `json:"telemetry"`
}

func (appConfig *AppConfig) FillOut() {
	appConfig.AppConfig.FillOut()

	if appConfig.APIConfig.Port == 0 {
		appConfig.APIConfig.Port = 40000
	}

	if appConfig.APIConfig.PathPrefix == "" {
		appConfig.APIConfig.PathPrefix = "api"
	}

	if len(appConfig.APIConfig.AllowedHeaders) == 0 {
		appConfig.APIConfig.AllowedHeaders = []string{"Content-Type"}
	}

	if len(appConfig.APIConfig.AllowedOrigins) == 0 {
		appConfig.APIConfig.AllowedOrigins = []string{"*"}
	}

	if len(appConfig.APIConfig.AllowedMethods) == 0 {
		appConfig.APIConfig.AllowedMethods = []string{"GET", "OPTIONS"}
	}

	if appConfig.APIConfig.APIKeyHeader == "" {
		appConfig.APIConfig.APIKeyHeader = "x-api-key"
	}
}

func (appConfig *AppConfig) PopulateFromEnv() {
	appConfig.AppConfig.PopulateFromEnv()

	if value := os.Getenv("API_KEYS"); value != "" {
		appConfig.APIConfig.APIKeys = strings.Split(value, ",")
	}
}

// SeparateConfigs hands the engine its own view of the configuration.
func (appConfig *AppConfig) SeparateConfigs() *oracleCore.AppConfig {
	return &appConfig.AppConfig
}
