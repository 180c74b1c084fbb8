// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New(...Option) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// SourceBaseURL is the artifact source endpoint (behind the auth proxy).
	SourceBaseURL string `koanf:"source_base_url"`

	// FetchTimeoutMS bounds one artifact list or download request.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// SnapshotPath is the on-disk location of the snapshot store.
	// Empty selects the in-memory store.
	SnapshotPath string `koanf:"snapshot_path"`

	// ValidationMode selects the transform policy: lenient or strict.
	ValidationMode string `koanf:"validation_mode"`

	// MaxErrorExamples bounds example contexts per validation error class.
	MaxErrorExamples int `koanf:"max_error_examples"`

	// RefreshBuffer sizes each load request's message channel.
	RefreshBuffer int `koanf:"refresh_buffer"`

	// MaxExportRows caps CSV export size.
	MaxExportRows int `koanf:"max_export_rows"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9090",
		SourceBaseURL:    "http://localhost:8400",
		FetchTimeoutMS:   30_000,
		SnapshotPath:     "",
		ValidationMode:   "lenient",
		MaxErrorExamples: 5,
		RefreshBuffer:    16,
		MaxExportRows:    100_000,
	}
}
