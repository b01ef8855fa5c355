package config

import (
	"time"

	"github.com/spf13/viper"
)

// defaults holds every configuration key with its built-in value.
// Registering each key also teaches viper the full key space, which is
// what makes the ATS_ environment variable mapping work for unset keys.
var defaults = map[string]any{
	// Model settings shared by every operation
	"ai.provider":         "gemini",
	"ai.model":            "gemini-2.0-flash",
	"ai.timeout":          60 * time.Second,
	"ai.apiKey":           "",
	"ai.maxRetries":       3,
	"ai.temperature":      0.7,
	"ai.useSystemPrompts": true,

	// Analyze operation overrides. The longer timeout absorbs large
	// extraction payloads; the low temperature keeps scoring stable.
	"ai.analyze.provider":         "gemini",
	"ai.analyze.model":            "",
	"ai.analyze.timeout":          75 * time.Second,
	"ai.analyze.apiKey":           "",
	"ai.analyze.maxRetries":       2,
	"ai.analyze.temperature":      0.2,
	"ai.analyze.useSystemPrompts": true,

	// Breaker guarding the analyze model calls
	"ai.analyze.circuitBreaker.enabled":          true,
	"ai.analyze.circuitBreaker.maxRequests":      3,
	"ai.analyze.circuitBreaker.interval":         60 * time.Second,
	"ai.analyze.circuitBreaker.timeout":          60 * time.Second,
	"ai.analyze.circuitBreaker.minRequests":      3,
	"ai.analyze.circuitBreaker.failureThreshold": 0.6,

	// HTTP listener. The write timeout has to outlast a slow model call.
	"server.host":         "localhost",
	"server.port":         "8080",
	"server.readTimeout":  30 * time.Second,
	"server.writeTimeout": 120 * time.Second,
	"server.idleTimeout":  120 * time.Second,

	// TLS is off until a deployment opts in
	"server.tls.mode":               "disabled",
	"server.tls.certFile":           "",
	"server.tls.keyFile":            "",
	"server.tls.caFile":             "",
	"server.tls.minVersion":         "1.2",
	"server.tls.cipherSuites":       []string{},
	"server.tls.clientAuthPolicy":   "require",
	"server.tls.insecureSkipVerify": false,
	"server.tls.serverName":         "",

	// Certificate rotation. Preemptive renewal triggers 72 hours out.
	"server.tls.autoReload.enabled":           true,
	"server.tls.autoReload.checkInterval":     30 * time.Second,
	"server.tls.autoReload.preemptiveRenewal": 72 * time.Hour,
	"server.tls.autoReload.maxRetries":        3,
	"server.tls.autoReload.retryDelay":        10 * time.Second,

	"server.tls.autoReload.fileWatcher.enabled":       true,
	"server.tls.autoReload.fileWatcher.debounceDelay": time.Second,

	"server.tls.autoReload.vaultWatcher.enabled":        false,
	"server.tls.autoReload.vaultWatcher.pollInterval":   5 * time.Minute,
	"server.tls.autoReload.vaultWatcher.autoRenew":      true,
	"server.tls.autoReload.vaultWatcher.renewThreshold": 24 * time.Hour,
	"server.tls.autoReload.vaultWatcher.secretPath":     "",

	// No keys configured means no authentication
	"server.apiKeys": []string{},

	"server.rateLimit.enabled":        false,
	"server.rateLimit.requestsPerMin": 60,
	"server.rateLimit.burstCapacity":  10,
	"server.rateLimit.byIP":           true,
	"server.rateLimit.byAPIKey":       false,

	// Terminal submit client
	"client.serverURL": "http://localhost:8080",
	"client.apiKey":    "",

	// Shared application settings. maxFileSize is the 10 MiB upload
	// ceiling; maxTextChars caps the extracted text sent to the model.
	"app.logLevel":         "info",
	"app.defaultFormat":    "json",
	"app.supportedFormats": []string{"json", "text", "markdown"},
	"app.maxFileSize":      10 * 1024 * 1024,
	"app.maxTextChars":     15000,

	// Vault secret sourcing, off unless addressed
	"vault.enabled":           false,
	"vault.address":           "",
	"vault.token":             "",
	"vault.tokenFile":         "",
	"vault.namespace":         "",
	"vault.secrets.apiKeys":   "",
	"vault.secrets.geminiKey": "",
	"vault.secrets.tlsCerts":  "",

	// Telemetry. Service version and instance are derived at startup
	// when left empty.
	"observability.enabled":         true,
	"observability.serviceName":     "ats",
	"observability.serviceVersion":  "",
	"observability.serviceInstance": "",
	"observability.consoleOutput":   false,
	"observability.sampleRate":      1.0,

	"observability.tracing.enabled":    true,
	"observability.tracing.sampleRate": 1.0,

	"observability.metrics.enabled":            true,
	"observability.metrics.collectionInterval": 15 * time.Second,

	"observability.customMetrics.aiOperations.enabled":         true,
	"observability.customMetrics.aiOperations.trackDuration":   true,
	"observability.customMetrics.aiOperations.trackTokenUsage": true,
	"observability.customMetrics.aiOperations.trackModelInfo":  true,

	"observability.customMetrics.businessMetrics.enabled":           true,
	"observability.customMetrics.businessMetrics.trackSuccessRates": true,
	"observability.customMetrics.businessMetrics.trackContentSizes": true,

	"observability.customMetrics.infrastructure.enabled":         true,
	"observability.customMetrics.infrastructure.trackRateLimits": true,
	"observability.customMetrics.infrastructure.trackCertExpiry": true,

	"observability.console.enabled":     false,
	"observability.console.prettyPrint": true,

	"observability.prometheus.enabled":  true,
	"observability.prometheus.endpoint": "/metrics",
	"observability.prometheus.port":     "9090",

	"observability.otlp.enabled":  false,
	"observability.otlp.endpoint": "http://localhost:4318",
	"observability.otlp.insecure": true,
	"observability.otlp.headers":  map[string]string{},

	"observability.healthCheck.timeout":             15 * time.Second,
	"observability.healthCheck.aiModelCheckTimeout": 10 * time.Second,
}

func setDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}
