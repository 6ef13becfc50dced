// Package prometheus adapts metrics.Provider to Prometheus collectors.
package prometheus

import (
	"errors"
	"fmt"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/ygrebnov/threadpool/metrics"
)

// Options controls collector construction.
type Options struct {
	// Namespace prefixes every metric name. Empty means no prefix.
	Namespace string
	// DurationBuckets are the histogram buckets. Default: prometheus.DefBuckets.
	DurationBuckets []float64
}

// Provider creates Prometheus collectors on demand and registers them with a Registerer.
// Counters map to prometheus.Counter, up/down counters to prometheus.Gauge and
// histograms to prometheus.Histogram. Instrument attributes become constant labels.
//
// Collectors are reference counted per name and attributes: each request acquires one
// reference and Release drops it. The last Release unregisters the collector.
type Provider struct {
	reg  prom.Registerer
	opts Options

	mu         sync.Mutex
	collectors map[string]*entry
	err        error
}

type entry struct {
	c    prom.Collector
	refs int
}

var (
	_ metrics.Provider = (*Provider)(nil)
	_ metrics.Releaser = (*Provider)(nil)
)

// NewProvider returns a Provider registering against reg (prometheus.DefaultRegisterer when nil).
func NewProvider(reg prom.Registerer, opts Options) *Provider {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if len(opts.DurationBuckets) == 0 {
		opts.DurationBuckets = prom.DefBuckets
	}
	return &Provider{reg: reg, opts: opts, collectors: make(map[string]*entry)}
}

// Err returns the first registration failure, if any. Instruments whose registration
// failed still accept measurements but are not exported.
func (p *Provider) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Provider) Counter(name string, opts ...metrics.InstrumentOption) metrics.Counter {
	cfg := metrics.Apply(opts...)
	c := getOrRegister(p, name, cfg, func() prom.Counter {
		return prom.NewCounter(prom.CounterOpts{
			Namespace:   p.opts.Namespace,
			Name:        name,
			Help:        help(name, cfg),
			ConstLabels: cfg.Attributes,
		})
	})
	return counter{c}
}

func (p *Provider) UpDownCounter(name string, opts ...metrics.InstrumentOption) metrics.UpDownCounter {
	cfg := metrics.Apply(opts...)
	g := getOrRegister(p, name, cfg, func() prom.Gauge {
		return prom.NewGauge(prom.GaugeOpts{
			Namespace:   p.opts.Namespace,
			Name:        name,
			Help:        help(name, cfg),
			ConstLabels: cfg.Attributes,
		})
	})
	return gauge{g}
}

func (p *Provider) Histogram(name string, opts ...metrics.InstrumentOption) metrics.Histogram {
	cfg := metrics.Apply(opts...)
	h := getOrRegister(p, name, cfg, func() prom.Histogram {
		return prom.NewHistogram(prom.HistogramOpts{
			Namespace:   p.opts.Namespace,
			Name:        name,
			Help:        help(name, cfg),
			ConstLabels: cfg.Attributes,
			Buckets:     p.opts.DurationBuckets,
		})
	})
	return histogram{h}
}

// getOrRegister returns the collector cached for name and attributes, creating and
// registering it on first use. An already registered equivalent collector is reused.
func getOrRegister[T prom.Collector](p *Provider, name string, cfg metrics.InstrumentConfig, newFn func() T) T {
	key := metrics.SeriesKey(name, cfg.Attributes)

	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.collectors[key]; ok {
		if typed, ok := e.c.(T); ok {
			e.refs++
			return typed
		}
		// same name requested as a different instrument kind
		p.recordErr(fmt.Errorf("collector %q already created as %T", name, e.c))
		return newFn()
	}

	c, err := registerCollector(p.reg, newFn())
	if err != nil {
		p.recordErr(err)
	}
	p.collectors[key] = &entry{c: c, refs: 1}
	return c
}

// Release drops one reference to the collector for name and the attributes in opts.
// When none remain the collector is unregistered and its series disappear from the
// registry. Releasing an unknown instrument is a no-op.
func (p *Provider) Release(name string, opts ...metrics.InstrumentOption) {
	key := metrics.SeriesKey(name, metrics.Apply(opts...).Attributes)

	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.collectors[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs > 0 {
		return
	}
	delete(p.collectors, key)
	p.reg.Unregister(e.c)
}

func (p *Provider) recordErr(err error) {
	if p.err == nil {
		p.err = err
	}
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var already prom.AlreadyRegisteredError
	if errors.As(err, &already) {
		existing, ok := already.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}

func help(name string, cfg metrics.InstrumentConfig) string {
	if cfg.Description != "" {
		return cfg.Description
	}
	return name
}

type counter struct{ c prom.Counter }

func (c counter) Add(n int64) {
	if n < 0 {
		return // prometheus counters panic on negative increments
	}
	c.c.Add(float64(n))
}

type gauge struct{ g prom.Gauge }

func (g gauge) Add(n int64) { g.g.Add(float64(n)) }

type histogram struct{ h prom.Histogram }

func (h histogram) Record(v float64) { h.h.Observe(v) }
