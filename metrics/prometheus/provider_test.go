package prometheus

import (
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/ygrebnov/threadpool/metrics"
)

func TestProvider_RecordsIntoRegistry(t *testing.T) {
	reg := prom.NewRegistry()
	p := NewProvider(reg, Options{Namespace: "test"})

	p.Counter("tasks_submitted_total").Add(3)
	p.Counter("tasks_submitted_total").Add(-1) // ignored
	p.UpDownCounter("queue_depth").Add(5)
	p.UpDownCounter("queue_depth").Add(-2)
	p.Histogram("task_duration_seconds").Record(0.25)
	require.NoError(t, p.Err())

	c := p.Counter("tasks_submitted_total").(counter)
	require.Equal(t, 3.0, testutil.ToFloat64(c.c))

	g := p.UpDownCounter("queue_depth").(gauge)
	require.Equal(t, 3.0, testutil.ToFloat64(g.g))

	h := p.Histogram("task_duration_seconds").(histogram)
	require.Equal(t, 1, testutil.CollectAndCount(h.h))

	n, err := testutil.GatherAndCount(reg, "test_tasks_submitted_total", "test_queue_depth", "test_task_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestProvider_ReusesAlreadyRegisteredCollector(t *testing.T) {
	reg := prom.NewRegistry()
	first := NewProvider(reg, Options{})
	second := NewProvider(reg, Options{})

	attrs := metrics.WithAttributes(map[string]string{"pool": "a"})
	first.Counter("hits_total", attrs).Add(1)
	second.Counter("hits_total", attrs).Add(1)
	require.NoError(t, first.Err())
	require.NoError(t, second.Err())

	c := first.Counter("hits_total", attrs).(counter)
	require.Equal(t, 2.0, testutil.ToFloat64(c.c))
}

func TestProvider_DistinctAttributesAreDistinctSeries(t *testing.T) {
	reg := prom.NewRegistry()
	p := NewProvider(reg, Options{})

	p.UpDownCounter("workers_live", metrics.WithAttributes(map[string]string{"pool": "a"})).Add(2)
	p.UpDownCounter("workers_live", metrics.WithAttributes(map[string]string{"pool": "b"})).Add(4)
	require.NoError(t, p.Err())

	n, err := testutil.GatherAndCount(reg, "workers_live")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestProvider_KindMismatchIsReported(t *testing.T) {
	p := NewProvider(prom.NewRegistry(), Options{})
	p.Counter("dup")
	require.NotPanics(t, func() { p.Histogram("dup").Record(1) })
	require.Error(t, p.Err())
}

func TestProvider_ReleaseUnregistersAfterLastReference(t *testing.T) {
	reg := prom.NewRegistry()
	p := NewProvider(reg, Options{})
	attrs := metrics.WithAttributes(map[string]string{"pool": "a"})

	p.Counter("hits_total", attrs).Add(1)
	p.Counter("hits_total", attrs).Add(1)
	p.UpDownCounter("workers_live", metrics.WithAttributes(map[string]string{"pool": "b"})).Add(1)

	p.Release("hits_total", attrs)
	n, err := testutil.GatherAndCount(reg, "hits_total")
	require.NoError(t, err)
	require.Equal(t, 1, n, "one reference is still held")

	p.Release("hits_total", attrs)
	n, err = testutil.GatherAndCount(reg, "hits_total")
	require.NoError(t, err)
	require.Equal(t, 0, n)

	n, err = testutil.GatherAndCount(reg, "workers_live")
	require.NoError(t, err)
	require.Equal(t, 1, n, "other series are untouched")

	require.NotPanics(t, func() { p.Release("missing") })

	// a released instrument can be requested again
	p.Counter("hits_total", attrs).Add(1)
	require.NoError(t, p.Err())
	n, err = testutil.GatherAndCount(reg, "hits_total")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
