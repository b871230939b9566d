package config

import (
	"fmt"
	"os"
)

type Config struct {
	DatabaseURL    string
	HTTPListenAddr string

	// Kubeconfig is the path to a kubeconfig file. Empty means in-cluster
	// configuration.
	Kubeconfig string

	ArgoCDServerURL string
	ArgoCDAuthToken string
	// ArgoCDUIURL is the user-facing ArgoCD base URL embedded in deployment
	// records. Falls back to ArgoCDServerURL when unset.
	ArgoCDUIURL string

	// ExternalHost is the host under which NodePort services are reachable
	// from outside the cluster.
	ExternalHost string

	// CatalogPath optionally overrides the embedded application catalog.
	CatalogPath string

	ServiceName string
	LogLevel    string
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		HTTPListenAddr:  getEnv("HTTP_LISTEN_ADDR", ":8090"),
		Kubeconfig:      getEnv("KUBECONFIG", ""),
		ArgoCDServerURL: getEnv("ARGOCD_SERVER_URL", ""),
		ArgoCDAuthToken: getEnv("ARGOCD_AUTH_TOKEN", ""),
		ArgoCDUIURL:     getEnv("ARGOCD_UI_URL", ""),
		ExternalHost:    getEnv("EXTERNAL_HOST", "localhost"),
		CatalogPath:     getEnv("CATALOG_PATH", ""),
		ServiceName:     getEnv("SERVICE_NAME", "deploy-api"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	if cfg.ArgoCDUIURL == "" {
		cfg.ArgoCDUIURL = cfg.ArgoCDServerURL
	}

	return cfg, nil
}

// Validate checks that the settings required to run the API server are set.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.ArgoCDServerURL == "" {
		return fmt.Errorf("ARGOCD_SERVER_URL is required")
	}
	if c.ExternalHost == "" {
		return fmt.Errorf("EXTERNAL_HOST is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
