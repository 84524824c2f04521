package observability

import (
	"time"

	"resumescope/internal/config"
)

const defaultCollectionInterval = 15 * time.Second

// Settings is the observability configuration resolved for one process.
type Settings struct {
	ServiceName     string
	ServiceVersion  string
	ServiceInstance string
	Enabled         bool
	ConsoleOutput   bool
	PrettyPrint     bool
	SampleRate      float64

	MetricsEnabled     bool
	CollectionInterval time.Duration
	TrackTokenUsage    bool
	TrackRateLimits    bool

	Prometheus PrometheusConfig
	OTLP       config.OTLPConfig
}

// SettingsFromConfig creates observability settings from the loaded config.
func SettingsFromConfig(cfg *config.Config, version string) Settings {
	if cfg == nil {
		return Settings{
			ServiceName:        "resumescope",
			ServiceVersion:     version,
			Enabled:            true,
			SampleRate:         1.0,
			MetricsEnabled:     true,
			CollectionInterval: defaultCollectionInterval,
			TrackTokenUsage:    true,
			TrackRateLimits:    true,
			Prometheus:         GetPrometheusConfig(nil),
		}
	}

	obs := cfg.Observability

	serviceVersion := obs.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}

	interval := obs.Metrics.CollectionInterval
	if interval <= 0 {
		interval = defaultCollectionInterval
	}

	return Settings{
		ServiceName:        obs.ServiceName,
		ServiceVersion:     serviceVersion,
		ServiceInstance:    obs.ServiceInstance,
		Enabled:            obs.Enabled,
		ConsoleOutput:      obs.ConsoleOutput,
		PrettyPrint:        obs.Console.PrettyPrint,
		SampleRate:         obs.SampleRate,
		MetricsEnabled:     obs.Metrics.Enabled,
		CollectionInterval: interval,
		TrackTokenUsage:    obs.Metrics.TrackTokenUsage,
		TrackRateLimits:    obs.Metrics.TrackRateLimits,
		Prometheus:         GetPrometheusConfig(cfg),
		OTLP:               obs.OTLP,
	}
}
