package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Backend connection
	v.SetDefault("backend.baseURL", "http://localhost:8000/api")
	v.SetDefault("backend.filesOrigin", "http://localhost:8000")
	v.SetDefault("backend.timeout", 30*time.Second)
	v.SetDefault("backend.userAgent", "jobpilot")
	v.SetDefault("backend.maxResponseBytes", 8*1024*1024)

	// Client-side pacing, off unless the backend asks for it
	v.SetDefault("backend.rateLimit.enabled", false)
	v.SetDefault("backend.rateLimit.requestsPerSecond", 5.0)
	v.SetDefault("backend.rateLimit.burst", 5)

	// Circuit breaker over transport failures
	v.SetDefault("backend.circuitBreaker.enabled", true)
	v.SetDefault("backend.circuitBreaker.maxRequests", 3)
	v.SetDefault("backend.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("backend.circuitBreaker.timeout", 30*time.Second)
	v.SetDefault("backend.circuitBreaker.minRequests", 5)
	v.SetDefault("backend.circuitBreaker.failureThreshold", 0.6)

	// TLS Configuration defaults
	v.SetDefault("backend.tls.mode", "system") // system, custom, mutual
	v.SetDefault("backend.tls.caFile", "")
	v.SetDefault("backend.tls.certFile", "")
	v.SetDefault("backend.tls.keyFile", "")
	v.SetDefault("backend.tls.minVersion", "1.2")
	v.SetDefault("backend.tls.insecureSkipVerify", false)
	v.SetDefault("backend.tls.serverName", "")

	// Credentials
	v.SetDefault("auth.source", "env")
	v.SetDefault("auth.token", "")
	v.SetDefault("auth.tokenEnv", "JOBPILOT_TOKEN")
	v.SetDefault("auth.tokenFile", "")
	v.SetDefault("auth.keyring.service", "jobpilot")
	v.SetDefault("auth.keyring.account", "default")
	v.SetDefault("auth.vaultPath", "secret/data/jobpilot")
	v.SetDefault("auth.vaultKey", "token")

	// Generation polling
	v.SetDefault("apply.maxAttempts", 40)
	v.SetDefault("apply.initialInterval", time.Second)
	v.SetDefault("apply.maxInterval", 5*time.Second)
	v.SetDefault("apply.multiplier", 1.3)
	v.SetDefault("apply.notFoundDelay", time.Second)
	v.SetDefault("apply.cancelTimeout", 5*time.Second)
	v.SetDefault("apply.defaultTemplate", "modern")
	v.SetDefault("apply.downloadDir", "")

	// CV pipeline
	v.SetDefault("pipeline.maxFileSize", 10*1024*1024) // 10 MiB
	v.SetDefault("pipeline.allowedTypes", []string{
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	})
	v.SetDefault("pipeline.autoAdvanceDelay", 1500*time.Millisecond)
	v.SetDefault("pipeline.autoMatch", true)
	v.SetDefault("pipeline.location", "")
	v.SetDefault("pipeline.maxResults", 20)
	v.SetDefault("pipeline.useDemo", false)
	v.SetDefault("pipeline.minScore", 0.0)
	v.SetDefault("pipeline.watchDebounce", time.Second)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "yaml", "text", "markdown"})
	v.SetDefault("app.dataDir", "$HOME/.jobpilot")

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", false)
	v.SetDefault("observability.serviceName", "jobpilot")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.console.prettyPrint", true)

	// Prometheus Configuration
	v.SetDefault("observability.prometheus.enabled", false)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")

	// OTLP Configuration
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})

	// Custom Metrics Configuration
	v.SetDefault("observability.customMetrics.apply.enabled", true)
	v.SetDefault("observability.customMetrics.gateway.enabled", true)
	v.SetDefault("observability.customMetrics.pipeline.enabled", true)
}
