package threadpool

import (
	"io"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/threadpool/metrics"
)

// config holds Pool configuration.
type config struct {
	// Size is the number of workers. Must be > 0.
	Size uint

	// QueueCapacity bounds the number of queued tasks.
	// Execute blocks while the queue is full; TryExecute reports false instead.
	// Default: 0 (unbounded)
	QueueCapacity uint

	// Name identifies the pool in logs and metric attributes.
	// Default: a random UUID.
	Name string

	// Logger receives lifecycle (Info) and per-task (Debug) messages.
	// Default: a logger discarding everything.
	Logger *slog.Logger

	// Metrics creates the pool instruments.
	// Default: metrics.NoopProvider.
	Metrics metrics.Provider
}

// defaultConfig centralizes default values for config.
func defaultConfig() config {
	return config{
		Size:          0, // required, no default
		QueueCapacity: 0, // unbounded
		Name:          "",
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:       metrics.NewNoopProvider(),
	}
}

// validateConfig checks invariants and fills in derived defaults.
func validateConfig(cfg *config) error {
	if cfg.Size == 0 {
		return errorc.With(ErrInvalidConfig, errorc.String("size", strconv.FormatUint(uint64(cfg.Size), 10)))
	}
	if cfg.Name == "" {
		cfg.Name = uuid.NewString()
	}
	return nil
}

// Option configures a Pool. Options return an error on invalid input.
type Option func(*config) error

// WithQueueCapacity bounds the job queue to n tasks, enabling backpressure on Execute.
// Zero keeps the queue unbounded.
func WithQueueCapacity(n uint) Option {
	return func(cfg *config) error { cfg.QueueCapacity = n; return nil }
}

// WithName sets the pool name used in logs and metric attributes.
func WithName(name string) Option {
	return func(cfg *config) error {
		if name == "" {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithName requires a non-empty name"))
		}
		cfg.Name = name
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) error {
		if l == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithLogger requires a non-nil logger"))
		}
		cfg.Logger = l
		return nil
	}
}

// WithMetrics sets the metrics provider.
func WithMetrics(p metrics.Provider) Option {
	return func(cfg *config) error {
		if p == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithMetrics requires a non-nil provider"))
		}
		cfg.Metrics = p
		return nil
	}
}
