// Package config reads tool defaults from the environment (and an optional
// .env file) and builds the run logger.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by Load.
const (
	EnvCatalog   = "SXSMANIFEST_CATALOG"
	EnvSystemDir = "SXSMANIFEST_SYSTEM_DIR"
	EnvLogLevel  = "SXSMANIFEST_LOG_LEVEL"
	EnvLogFormat = "SXSMANIFEST_LOG_FORMAT"
)

type Config struct {
	// CatalogPath is an HCL component catalog. Empty selects the system
	// registry.
	CatalogPath string
	// SystemDir is the value of the catalog's ${system} variable.
	SystemDir string
	LogLevel  string
	LogFormat string
}

// Load reads .env from the working directory, if present, and then the
// environment.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults.
func FromEnv(getenv func(string) string) *Config {
	return &Config{
		CatalogPath: strings.TrimSpace(getenv(EnvCatalog)),
		SystemDir:   firstNonEmpty(strings.TrimSpace(getenv(EnvSystemDir)), defaultSystemDir(getenv)),
		LogLevel:    firstNonEmpty(strings.ToLower(strings.TrimSpace(getenv(EnvLogLevel))), "info"),
		LogFormat:   firstNonEmpty(strings.ToLower(strings.TrimSpace(getenv(EnvLogFormat))), "text"),
	}
}

// defaultSystemDir is where 32-bit system components live on a 64-bit host.
func defaultSystemDir(getenv func(string) string) string {
	root := firstNonEmpty(strings.TrimSpace(getenv("SystemRoot")), `C:\Windows`)
	return strings.TrimRight(root, `\/`) + `\SysWOW64`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
