package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// applyFallbacks fills derived values that viper defaults cannot express
func (c *Config) applyFallbacks() {
	c.applyDataDirDefaults()
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Backend.FilesOrigin == "" {
		c.Backend.FilesOrigin = originOf(c.Backend.BaseURL)
	}
}

// applyDataDirDefaults expands the data directory, falling back to the working directory
func (c *Config) applyDataDirDefaults() {
	dir := os.ExpandEnv(c.App.DataDir)
	if dir == "" || strings.HasPrefix(dir, "/.jobpilot") && os.Getenv("HOME") == "" {
		dir = ".jobpilot"
	}
	c.App.DataDir = filepath.Clean(dir)
}

// applyTLSDefaults applies default TLS configuration values
func (c *Config) applyTLSDefaults() {
	if c.Backend.TLS.Mode == "" {
		c.Backend.TLS.Mode = "system"
	}
	if c.Backend.TLS.MinVersion == "" {
		c.Backend.TLS.MinVersion = "1.2"
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// originOf strips the path from a URL, keeping scheme and host
func originOf(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return ""
	}
	host, _, _ := strings.Cut(rest, "/")
	return scheme + "://" + host
}

// DatabasePath is the location of the history database
func (c *Config) DatabasePath() string {
	return filepath.Join(c.App.DataDir, "history.db")
}

// LockPath is the location of the single-apply lock file
func (c *Config) LockPath() string {
	return filepath.Join(c.App.DataDir, "apply.lock")
}

func maskValue(name, value string) string {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "token") || strings.Contains(lower, "key") || strings.Contains(lower, "secret") {
		return "***MASKED***"
	}
	return value
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"JOBPILOT_BACKEND_BASEURL",
		"JOBPILOT_BACKEND_FILESORIGIN",
		"JOBPILOT_AUTH_SOURCE",
		"JOBPILOT_AUTH_TOKEN",
		"JOBPILOT_TOKEN",
		"JOBPILOT_APP_LOGLEVEL",
		"JOBPILOT_APP_DATADIR",
		"JOBPILOT_VAULT_ENABLED",
		"JOBPILOT_VAULT_TOKEN",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			log.Printf("[CONFIG]   %s=%s", envVar, maskValue(envVar, value))
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] Backend: %s", c.Backend.BaseURL)
	log.Printf("[CONFIG] Files origin: %s", c.Backend.FilesOrigin)
	log.Printf("[CONFIG] Auth source: %s", c.Auth.Source)
	if c.Auth.Token != "" {
		log.Println("[CONFIG] Static token: ***CONFIGURED***")
	}
	log.Printf("[CONFIG] Apply: maxAttempts=%d initial=%s max=%s multiplier=%.2f",
		c.Apply.MaxAttempts, c.Apply.InitialInterval, c.Apply.MaxInterval, c.Apply.Multiplier)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Data dir: %s", c.App.DataDir)
	log.Printf("[CONFIG] TLS Mode: %s", c.Backend.TLS.Mode)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}
