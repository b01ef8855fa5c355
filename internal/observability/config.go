package observability

import (
	"cmp"

	"github.com/sreekeshm77/ATS-project/internal/config"
)

// GetObservabilityConfig flattens the loaded config into the manager's
// startup settings. With no config loaded it falls back to console-only
// telemetry, which keeps the CLI paths observable during development.
func GetObservabilityConfig(cfg *config.Config, version string) ObservabilityConfig {
	oc := ObservabilityConfig{
		ServiceName:    "ats",
		ServiceVersion: version,
		Enabled:        true,
		ConsoleOutput:  true,
		PrettyPrint:    true,
		SampleRate:     1.0,
		Prometheus:     GetPrometheusConfig(cfg),
	}
	if cfg == nil {
		return oc
	}

	obs := cfg.Observability
	oc.ServiceName = obs.ServiceName
	// The binary's build version stands in when the config does not pin
	// a service version.
	oc.ServiceVersion = cmp.Or(obs.ServiceVersion, version)
	oc.Enabled = obs.Enabled
	oc.ConsoleOutput = obs.ConsoleOutput
	oc.PrettyPrint = obs.Console.PrettyPrint
	oc.SampleRate = obs.SampleRate
	return oc
}
