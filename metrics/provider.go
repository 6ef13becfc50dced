// Package metrics defines the instruments a thread pool reports through and ships two
// providers: a no-op one (the default) and an in-memory one for tests and examples.
// Adapters for real backends live in subpackages.
package metrics

import (
	"sort"
	"strings"
)

// Provider creates named instruments. Asking twice for the same name and attributes
// returns the same instrument. Implementations must be safe for concurrent use.
type Provider interface {
	Counter(name string, opts ...InstrumentOption) Counter
	UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter
	Histogram(name string, opts ...InstrumentOption) Histogram
}

// Releaser is implemented by providers that can drop instruments they created.
// A pool releases its instruments once all of its workers have exited, so series
// labelled with its name do not outlive it.
type Releaser interface {
	Release(name string, opts ...InstrumentOption)
}

// Counter records monotonic counts (tasks submitted, tasks completed).
type Counter interface {
	Add(n int64)
}

// UpDownCounter records a level that moves both ways (queue depth, tasks in flight).
type UpDownCounter interface {
	Add(n int64)
}

// Histogram records a distribution, e.g. task durations in seconds.
type Histogram interface {
	Record(v float64)
}

// InstrumentConfig is advisory metadata attached to an instrument.
type InstrumentConfig struct {
	Description string
	Unit        string
	// Attributes are constant labels of the instrument. Keep cardinality bounded.
	Attributes map[string]string
}

// InstrumentOption mutates InstrumentConfig.
type InstrumentOption func(*InstrumentConfig)

// WithDescription sets the instrument description (help text).
func WithDescription(desc string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Description = desc }
}

// WithUnit sets the instrument unit, e.g. "1" or "seconds".
func WithUnit(unit string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Unit = unit }
}

// WithAttributes merges constant attributes into the instrument config.
func WithAttributes(attrs map[string]string) InstrumentOption {
	return func(c *InstrumentConfig) {
		if len(attrs) == 0 {
			return
		}
		if c.Attributes == nil {
			c.Attributes = make(map[string]string, len(attrs))
		}
		for k, v := range attrs {
			c.Attributes[k] = v
		}
	}
}

// Apply folds opts into an InstrumentConfig. Nil options are skipped.
func Apply(opts ...InstrumentOption) InstrumentConfig {
	var cfg InstrumentConfig
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	return cfg
}

// SeriesKey identifies an instrument by name and attribute set, independent of the
// order attributes were given in.
func SeriesKey(name string, attrs map[string]string) string {
	if len(attrs) == 0 {
		return name
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(attrs[k])
	}
	return b.String()
}
