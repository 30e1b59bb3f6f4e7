// Package telemetry wraps OpenTelemetry tracer-provider construction and a
// handful of span helpers used by the pub/sub broker's control loop and the
// chat bridge's reactor callbacks. It is the ambient observability layer the
// rest of the service never reasons about directly.
package telemetry

// ExporterType selects where finished spans go.
type ExporterType string

const (
	// ExporterNone discards every span; used when tracing is disabled.
	ExporterNone ExporterType = "none"
	// ExporterStdout prints spans as JSON to standard out, for local
	// development and the teacher's own development-mode default.
	ExporterStdout ExporterType = "stdout"
)

// Config configures the tracer provider.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	ExporterType   ExporterType
	// SampleRate is the fraction of traces recorded, in (0,1]; zero or a
	// negative value is replaced with 1.0.
	SampleRate float64
}

// DefaultConfig returns the config the service boots with absent explicit
// configuration: tracing disabled, matching a production-safe default.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "chatcore",
		ServiceVersion: "dev",
		Environment:    "development",
		ExporterType:   ExporterNone,
		SampleRate:     1.0,
	}
}

func (c Config) withDefaults() Config {
	if c.ServiceName == "" {
		c.ServiceName = "chatcore"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "dev"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.ExporterType == "" {
		c.ExporterType = ExporterNone
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 1.0
	}
	return c
}
