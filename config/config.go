package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Transport mode for the remote document store.
const (
	ModeHTTP = "HTTP" // one request/response exchange per operation
	ModeWS   = "WS"   // persistent streaming connection
)

type Config struct {
	HTTPAddr string

	// Remote fragment store
	Mode            string // ModeHTTP or ModeWS
	FragmentAPIURL  string
	FragmentWSURL   string
	FragmentAPIKey  string
	CredentialsFile string
	SecretKey       string // encryption secret used for first-run provisioning
	RefreshInterval time.Duration
	DebugMode       bool // flush stream exchange history on shutdown

	JWTSecret string
}

// Load reads configuration from environment variables, applying defaults.
func Load() Config {
	cfg := Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		Mode:            strings.ToUpper(getEnv("DB_MODE", ModeHTTP)),
		FragmentAPIURL:  getEnv("FRAGMENT_API_URL", "https://fragments.cloudscribe.dev"),
		FragmentWSURL:   getEnv("FRAGMENT_WS_URL", "wss://fragments.cloudscribe.dev/stream"),
		FragmentAPIKey:  getEnv("FRAGMENT_API_KEY", ""),
		CredentialsFile: getEnv("CREDENTIALS_FILE", "credentials.json"),
		SecretKey:       getEnv("SCRIBE_SECRET_KEY", ""),
		DebugMode:       strings.EqualFold(getEnv("DEBUG_MODE", "false"), "true"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
	}
	cfg.RefreshInterval = time.Duration(getEnvInt("DB_REFRESH_INTERVAL", 30)) * time.Second
	if cfg.Mode != ModeWS {
		cfg.Mode = ModeHTTP
	}
	return cfg
}

// getEnv returns the env var or a default
func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// getEnvInt parses an int env var with a fallback
func getEnvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		var i int
		_, _ = fmt.Sscanf(v, "%d", &i)
		if i > 0 {
			return i
		}
	}
	return def
}
