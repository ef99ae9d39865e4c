package pubsub

import (
	"os"
	"strconv"
)

// LoadTracingConfigFromEnv reads PUBSUB_TRACING_ENABLED,
// PUBSUB_TRACING_SERVICE_NAME and PUBSUB_TRACING_ZIPKIN_URL over the defaults.
func LoadTracingConfigFromEnv() TracingConfig {
	cfg := DefaultTracingConfig()

	if raw := os.Getenv("PUBSUB_TRACING_ENABLED"); raw != "" {
		if enabled, err := strconv.ParseBool(raw); err == nil {
			cfg.Enabled = enabled
		}
	}
	if name := os.Getenv("PUBSUB_TRACING_SERVICE_NAME"); name != "" {
		cfg.ServiceName = name
	}
	if url := os.Getenv("PUBSUB_TRACING_ZIPKIN_URL"); url != "" {
		cfg.ZipkinURL = url
	}
	return cfg
}
