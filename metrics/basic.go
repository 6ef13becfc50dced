package metrics

import (
	"sync"
	"sync/atomic"
)

// BasicProvider keeps instruments in memory so their values can be read back.
// It is safe for concurrent use and suits tests, examples and small programs.
//
// Instruments are keyed by name and attributes, so pools sharing a provider keep
// separate series. Read-back methods take the same options: with attributes they
// address one series, without they aggregate every series of that name.
type BasicProvider struct {
	mu         sync.RWMutex
	counters   map[string]*BasicCounter
	updowns    map[string]*BasicUpDownCounter
	histograms map[string]*BasicHistogram
	meta       map[string]InstrumentConfig

	// series keys per instrument name, in creation order
	series map[string][]string
}

// NewBasicProvider returns an empty BasicProvider.
func NewBasicProvider() *BasicProvider {
	return &BasicProvider{
		counters:   make(map[string]*BasicCounter),
		updowns:    make(map[string]*BasicUpDownCounter),
		histograms: make(map[string]*BasicHistogram),
		meta:       make(map[string]InstrumentConfig),
		series:     make(map[string][]string),
	}
}

// lookup returns the instrument for name and the attributes in opts, creating it
// with newFn under the write lock if absent.
func lookup[I any](p *BasicProvider, m map[string]I, name string, opts []InstrumentOption, newFn func() I) I {
	cfg := Apply(opts...)
	key := SeriesKey(name, cfg.Attributes)

	p.mu.RLock()
	inst, ok := m[key]
	p.mu.RUnlock()
	if ok {
		return inst
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if inst, ok = m[key]; ok {
		return inst
	}
	inst = newFn()
	m[key] = inst
	if _, seen := p.meta[key]; !seen {
		p.meta[key] = cfg
		p.series[name] = append(p.series[name], key)
	}
	return inst
}

// matching returns the instruments of m selected by name and the attributes in opts.
func matching[I any](p *BasicProvider, m map[string]I, name string, opts []InstrumentOption) []I {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if attrs := Apply(opts...).Attributes; len(attrs) > 0 {
		if inst, ok := m[SeriesKey(name, attrs)]; ok {
			return []I{inst}
		}
		return nil
	}

	var out []I
	for _, key := range p.series[name] {
		if inst, ok := m[key]; ok {
			out = append(out, inst)
		}
	}
	return out
}

// Counter returns the counter registered under name and attributes.
func (p *BasicProvider) Counter(name string, opts ...InstrumentOption) Counter {
	return lookup(p, p.counters, name, opts, func() *BasicCounter { return &BasicCounter{} })
}

// UpDownCounter returns the up/down counter registered under name and attributes.
func (p *BasicProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	return lookup(p, p.updowns, name, opts, func() *BasicUpDownCounter { return &BasicUpDownCounter{} })
}

// Histogram returns the histogram registered under name and attributes.
func (p *BasicProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	return lookup(p, p.histograms, name, opts, func() *BasicHistogram { return &BasicHistogram{} })
}

// CounterValue returns the value of a counter, or 0 if it was never created.
func (p *BasicProvider) CounterValue(name string, opts ...InstrumentOption) int64 {
	var total int64
	for _, c := range matching(p, p.counters, name, opts) {
		total += c.Snapshot()
	}
	return total
}

// UpDownValue returns the value of an up/down counter, or 0 if it was never created.
func (p *BasicProvider) UpDownValue(name string, opts ...InstrumentOption) int64 {
	var total int64
	for _, u := range matching(p, p.updowns, name, opts) {
		total += u.Snapshot()
	}
	return total
}

// HistogramSnapshot returns the state of a histogram and whether it exists.
// Several series are merged into one snapshot.
func (p *BasicProvider) HistogramSnapshot(name string, opts ...InstrumentOption) (HistSnapshot, bool) {
	hs := matching(p, p.histograms, name, opts)
	if len(hs) == 0 {
		return HistSnapshot{}, false
	}

	var out HistSnapshot
	for _, h := range hs {
		s := h.Snapshot()
		if s.Count == 0 {
			continue
		}
		if out.Count == 0 || s.Min < out.Min {
			out.Min = s.Min
		}
		if out.Count == 0 || s.Max > out.Max {
			out.Max = s.Max
		}
		out.Count += s.Count
		out.Sum += s.Sum
	}
	if out.Count > 0 {
		out.Mean = out.Sum / float64(out.Count)
	}
	return out, true
}

// Config returns the metadata an instrument was created with. Without attributes in
// opts it reports the first series created under name.
func (p *BasicProvider) Config(name string, opts ...InstrumentOption) (InstrumentConfig, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if attrs := Apply(opts...).Attributes; len(attrs) > 0 {
		cfg, ok := p.meta[SeriesKey(name, attrs)]
		return cfg, ok
	}
	keys := p.series[name]
	if len(keys) == 0 {
		return InstrumentConfig{}, false
	}
	return p.meta[keys[0]], true
}

// BasicCounter is a monotonic counter.
type BasicCounter struct {
	val atomic.Int64
}

func (c *BasicCounter) Add(n int64) { c.val.Add(n) }

// Snapshot returns the current value.
func (c *BasicCounter) Snapshot() int64 { return c.val.Load() }

// BasicUpDownCounter is a counter that may go down.
type BasicUpDownCounter struct {
	val atomic.Int64
}

func (u *BasicUpDownCounter) Add(n int64) { u.val.Add(n) }

// Snapshot returns the current value.
func (u *BasicUpDownCounter) Snapshot() int64 { return u.val.Load() }

// BasicHistogram aggregates count, sum, min and max. It keeps no buckets.
type BasicHistogram struct {
	mu    sync.Mutex
	count int64
	sum   float64
	min   float64
	max   float64
}

func (h *BasicHistogram) Record(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 || v < h.min {
		h.min = v
	}
	if h.count == 0 || v > h.max {
		h.max = v
	}
	h.count++
	h.sum += v
}

// HistSnapshot is a point-in-time copy of a BasicHistogram.
type HistSnapshot struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Mean  float64
}

// Snapshot copies the histogram state.
func (h *BasicHistogram) Snapshot() HistSnapshot {
	h.mu.Lock()
	s := HistSnapshot{Count: h.count, Sum: h.sum, Min: h.min, Max: h.max}
	h.mu.Unlock()
	if s.Count > 0 {
		s.Mean = s.Sum / float64(s.Count)
	}
	return s
}
