package threadpool

import "github.com/ygrebnov/threadpool/metrics"

// Metric names reported by a Pool.
const (
	MetricTasksSubmitted = Namespace + "_tasks_submitted_total"
	MetricTasksCompleted = Namespace + "_tasks_completed_total"
	MetricTasksRejected  = Namespace + "_tasks_rejected_total"
	MetricTasksInflight  = Namespace + "_tasks_inflight"
	MetricQueueDepth     = Namespace + "_queue_depth"
	MetricWorkersLive    = Namespace + "_workers_live"
	MetricTaskDuration   = Namespace + "_task_duration_seconds"
)

type instruments struct {
	submitted metrics.Counter
	completed metrics.Counter
	rejected  metrics.Counter
	inflight  metrics.UpDownCounter
	depth     metrics.UpDownCounter
	live      metrics.UpDownCounter
	duration  metrics.Histogram

	provider metrics.Provider
	attrs    metrics.InstrumentOption
}

var instrumentNames = []string{
	MetricTasksSubmitted,
	MetricTasksCompleted,
	MetricTasksRejected,
	MetricTasksInflight,
	MetricQueueDepth,
	MetricWorkersLive,
	MetricTaskDuration,
}

func newInstruments(p metrics.Provider, poolName string) *instruments {
	attrs := metrics.WithAttributes(map[string]string{"pool": poolName})
	return &instruments{
		submitted: p.Counter(MetricTasksSubmitted, attrs, metrics.WithUnit("1"),
			metrics.WithDescription("Tasks accepted onto the job queue.")),
		completed: p.Counter(MetricTasksCompleted, attrs, metrics.WithUnit("1"),
			metrics.WithDescription("Tasks that ran to completion.")),
		rejected: p.Counter(MetricTasksRejected, attrs, metrics.WithUnit("1"),
			metrics.WithDescription("Tasks refused because the pool was closed or the queue was full.")),
		inflight: p.UpDownCounter(MetricTasksInflight, attrs, metrics.WithUnit("1"),
			metrics.WithDescription("Tasks currently executing.")),
		depth: p.UpDownCounter(MetricQueueDepth, attrs, metrics.WithUnit("1"),
			metrics.WithDescription("Tasks waiting on the job queue.")),
		live: p.UpDownCounter(MetricWorkersLive, attrs, metrics.WithUnit("1"),
			metrics.WithDescription("Worker goroutines that have not exited.")),
		duration: p.Histogram(MetricTaskDuration, attrs, metrics.WithUnit("seconds"),
			metrics.WithDescription("Task execution time.")),
		provider: p,
		attrs:    attrs,
	}
}

// release hands the instruments back to providers implementing metrics.Releaser.
// Measurements recorded afterwards are not exported.
func (i *instruments) release() {
	r, ok := i.provider.(metrics.Releaser)
	if !ok {
		return
	}
	for _, name := range instrumentNames {
		r.Release(name, i.attrs)
	}
}
