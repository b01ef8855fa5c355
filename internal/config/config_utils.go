package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// watchedEnvVars are the variables the startup summary reports on. The
// last entry is the pre-prefix Gemini name, still honored for API keys.
var watchedEnvVars = []string{
	"ATS_AI_APIKEY",
	"ATS_AI_PROVIDER",
	"ATS_AI_MODEL",
	"ATS_SERVER_PORT",
	"ATS_SERVER_HOST",
	"ATS_CLIENT_SERVERURL",
	"ATS_APP_LOGLEVEL",
	"ATS_VAULT_ENABLED",
	"GEMINI_API_KEY",
}

// applyFallbacks fills in values viper cannot derive on its own. The AI
// API key chain is intentionally absent: GetAnalyzeConfig resolves it at
// the point of use.
func (c *Config) applyFallbacks() {
	if env := os.Getenv("ATS_SERVER_APIKEYS"); env != "" && len(c.Server.APIKeys) == 0 {
		c.Server.APIKeys = splitAPIKeys(env)
	}

	tls := &c.Server.TLS
	if tls.Mode == "mutual" && tls.ClientAuthPolicy == "" {
		tls.ClientAuthPolicy = "require"
	}
	if tls.Mode != "disabled" && tls.MinVersion == "" {
		tls.MinVersion = "1.2"
	}

	obs := &c.Observability
	if obs.ServiceInstance == "" {
		obs.ServiceInstance = defaultInstanceID(obs.ServiceName)
	}
}

// splitAPIKeys parses a comma-separated key list, dropping surrounding
// whitespace and empty entries.
func splitAPIKeys(raw string) []string {
	if raw == "" {
		return nil
	}
	var keys []string
	for part := range strings.SplitSeq(raw, ",") {
		if key := strings.TrimSpace(part); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

func defaultInstanceID(serviceName string) string {
	hostname, err := os.Hostname()
	if err != nil {
		return serviceName + "-1"
	}
	return fmt.Sprintf("%s-%s", serviceName, hostname)
}

// sensitiveEnv reports whether the variable's value must not be logged.
func sensitiveEnv(name string) bool {
	return strings.Contains(strings.ToLower(name), "key")
}

func logWatchedEnv() {
	log.Println("[CONFIG] Environment overrides:")
	seen := 0
	for _, name := range watchedEnvVars {
		value := os.Getenv(name)
		if value == "" {
			continue
		}
		if sensitiveEnv(name) {
			value = "***MASKED***"
		}
		log.Printf("[CONFIG]   %s=%s", name, value)
		seen++
	}
	if seen == 0 {
		log.Println("[CONFIG]   (none)")
	}
}

// logConfigurationSources writes a startup summary of where settings came
// from. Key material is masked, never printed.
func (c *Config) logConfigurationSources(fileUsed string) {
	log.Println("[CONFIG] === Configuration Summary ===")
	if fileUsed == "" {
		log.Println("[CONFIG] Config file: none, defaults in effect")
	} else {
		log.Printf("[CONFIG] Config file: %s", fileUsed)
	}
	logWatchedEnv()

	apiKeyState := "***NOT SET***"
	if c.AI.APIKey != "" {
		apiKeyState = "***CONFIGURED***"
	}
	settings := []struct {
		label string
		value any
	}{
		{"AI Provider", c.AI.Provider},
		{"AI Model", c.AI.Model},
		{"AI API Key", apiKeyState},
		{"Server Host", c.Server.Host},
		{"Server Port", c.Server.Port},
		{"Client Server URL", c.Client.ServerURL},
		{"Log Level", c.App.LogLevel},
		{"Max Upload Size", fmt.Sprintf("%d bytes", c.App.MaxFileSize)},
		{"TLS Mode", c.Server.TLS.Mode},
		{"Vault Enabled", c.Vault.Enabled},
		{"Observability Enabled", c.Observability.Enabled},
	}
	log.Println("[CONFIG] === Effective Settings ===")
	for _, s := range settings {
		log.Printf("[CONFIG] %s: %v", s.label, s.value)
	}

	log.Println("[CONFIG] === Per-Operation AI ===")
	log.Printf("[CONFIG] Analyze operation: %s / %s", c.AI.Analyze.Provider, c.AI.Analyze.Model)
	log.Println("[CONFIG] =============================")
}
