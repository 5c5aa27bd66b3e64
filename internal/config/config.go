package config

import (
	"net"
	"os"

	"github.com/gbFinch/FreeTradingJournal/internal/models"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Journal JournalConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// JournalConfig holds defaults applied to manually entered trades
type JournalConfig struct {
	DefaultCurrency   string
	DefaultAssetClass models.AssetClass
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Journal: JournalConfig{
			DefaultCurrency:   getEnv("JOURNAL_DEFAULT_CURRENCY", "USD"),
			DefaultAssetClass: models.AssetClass(getEnv("JOURNAL_DEFAULT_ASSET_CLASS", string(models.AssetClassStock))),
		},
	}
}

// Addr returns the host:port address the HTTP server listens on
func (s *ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
