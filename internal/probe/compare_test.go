package probe

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagoresarker/edge-speed-compare/internal/metrics"
	"github.com/sagoresarker/edge-speed-compare/internal/models"
)

type fakeProber struct {
	mu      sync.Mutex
	totals  map[string]int
	delays  map[string]time.Duration
	targets []string
	ctxErrs []error
}

func (f *fakeProber) Probe(ctx context.Context, target, label string) models.Measurement {
	f.mu.Lock()
	f.targets = append(f.targets, target)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	total, ok := f.totals[target]
	delay := f.delays[target]
	f.mu.Unlock()

	time.Sleep(delay)
	if !ok {
		return Fallback(label, target)
	}
	return models.Measurement{Label: label, TargetURL: target, TotalTime: total, Source: models.SourceInstrumented}
}

type fakeCounter struct {
	calls   chan int64
	err     error
	release chan struct{}
}

func (f *fakeCounter) Increment(ctx context.Context, amount int64) (int64, error) {
	if f.release != nil {
		<-f.release
	}
	f.calls <- amount
	return 1, f.err
}

func TestSpeedup(t *testing.T) {
	tests := []struct {
		name   string
		origin int
		edge   int
		want   float64
	}{
		{"ten times faster", 500, 50, 10.0},
		{"one decimal", 3, 2, 1.5},
		{"rounds", 100, 30, 3.3},
		{"slower edge", 1, 3, 0.3},
		{"floored edge", 100, 1, 100.0},
		{"zero edge", 100, 0, 1.0},
		{"zero over zero", 0, 0, 1.0},
		{"tiny ratio clamps", 1, 1000, 0.1},
		{"negative clamps", -5, 1, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Speedup(tt.origin, tt.edge)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.False(t, math.IsNaN(got) || math.IsInf(got, 0))
			assert.GreaterOrEqual(t, got, 0.1)
		})
	}
}

func TestCompare(t *testing.T) {
	prober := &fakeProber{totals: map[string]int{
		"https://edge.example":   50,
		"https://origin.example": 500,
	}}
	c := NewComparer(prober, nil, nil, CompareConfig{}, nil)

	res := c.Compare(context.Background(), "https://edge.example", "https://origin.example")

	assert.Equal(t, 10.0, res.Speedup)
	assert.Equal(t, "https://edge.example", res.TargetURL)
	assert.Equal(t, "https://origin.example", res.OriginURL)
	assert.Equal(t, EdgeLabel, res.Edge.Label)
	assert.Equal(t, "https://edge.example", res.Edge.TargetURL)
	assert.Equal(t, OriginLabel, res.Origin.Label)
	assert.Equal(t, "https://origin.example", res.Origin.TargetURL)
	assert.NotEmpty(t, res.ID)
	assert.InDelta(t, time.Now().UnixMilli(), res.MeasuredAt, float64(5*time.Second/time.Millisecond))
}

func TestCompareDefaults(t *testing.T) {
	prober := &fakeProber{}
	c := NewComparer(prober, nil, nil, CompareConfig{}, nil)

	res := c.Compare(context.Background(), "", "")

	assert.Equal(t, DefaultEdgeTarget, res.TargetURL)
	assert.Equal(t, DefaultOriginTarget, res.OriginURL)
	assert.ElementsMatch(t, []string{DefaultEdgeTarget, DefaultOriginTarget}, prober.targets)
	assert.Equal(t, 1.0, res.Speedup, "two fallback records compare evenly")
}

func TestCompareConfiguredDefaults(t *testing.T) {
	prober := &fakeProber{}
	c := NewComparer(prober, nil, nil, CompareConfig{
		DefaultEdgeTarget:   "edge.internal",
		DefaultOriginTarget: "origin.internal",
	}, nil)

	res := c.Compare(context.Background(), "", "custom.example")

	assert.Equal(t, "edge.internal", res.TargetURL)
	assert.Equal(t, "custom.example", res.OriginURL)
}

func TestComparePairsResultsWithTargets(t *testing.T) {
	prober := &fakeProber{
		totals: map[string]int{"slow-edge": 40, "fast-origin": 20},
		delays: map[string]time.Duration{"slow-edge": 50 * time.Millisecond},
	}
	c := NewComparer(prober, nil, nil, CompareConfig{}, nil)

	res := c.Compare(context.Background(), "slow-edge", "fast-origin")

	assert.Equal(t, "slow-edge", res.Edge.TargetURL)
	assert.Equal(t, "fast-origin", res.Origin.TargetURL)
	assert.Equal(t, 0.5, res.Speedup)
}

func TestCompareRunsProbesConcurrently(t *testing.T) {
	prober := &fakeProber{
		totals: map[string]int{"a": 1, "b": 1},
		delays: map[string]time.Duration{"a": 200 * time.Millisecond, "b": 200 * time.Millisecond},
	}
	c := NewComparer(prober, nil, nil, CompareConfig{}, nil)

	start := time.Now()
	c.Compare(context.Background(), "a", "b")

	assert.Less(t, time.Since(start), 390*time.Millisecond)
}

func TestCompareDetachesCancellation(t *testing.T) {
	prober := &fakeProber{}
	c := NewComparer(prober, nil, nil, CompareConfig{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := c.Compare(ctx, "a", "b")

	require.Len(t, prober.ctxErrs, 2)
	assert.NoError(t, prober.ctxErrs[0])
	assert.NoError(t, prober.ctxErrs[1])
	assert.Equal(t, 1.0, res.Speedup)
}

func TestCompareNotifiesCounter(t *testing.T) {
	counter := &fakeCounter{calls: make(chan int64, 1)}
	c := NewComparer(&fakeProber{}, counter, nil, CompareConfig{}, nil)

	c.Compare(context.Background(), "a", "b")

	select {
	case amount := <-counter.calls:
		assert.Equal(t, int64(1), amount)
	case <-time.After(2 * time.Second):
		t.Fatal("counter was not notified")
	}
}

func TestCompareIgnoresCounterFailure(t *testing.T) {
	counter := &fakeCounter{calls: make(chan int64, 1), err: errors.New("storage offline")}
	prober := &fakeProber{totals: map[string]int{"a": 50, "b": 500}}
	c := NewComparer(prober, counter, nil, CompareConfig{}, nil)

	res := c.Compare(context.Background(), "a", "b")

	assert.Equal(t, 10.0, res.Speedup)
	<-counter.calls
}

func TestCompareDoesNotWaitForCounter(t *testing.T) {
	counter := &fakeCounter{calls: make(chan int64, 1), release: make(chan struct{})}
	defer close(counter.release)
	c := NewComparer(&fakeProber{}, counter, nil, CompareConfig{}, nil)

	done := make(chan struct{})
	go func() {
		c.Compare(context.Background(), "a", "b")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("comparison blocked on the counter")
	}
}

func TestCompareRecordsMetrics(t *testing.T) {
	m := metrics.New()
	prober := &fakeProber{totals: map[string]int{"a": 50}}
	c := NewComparer(prober, nil, m, CompareConfig{}, nil)

	c.Compare(context.Background(), "a", "b")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `edgespeed_probes_total{estimated="false",role="edge",source="instrumented"} 1`)
	assert.Contains(t, body, `edgespeed_probes_total{estimated="true",role="origin",source="fallback"} 1`)
	assert.Contains(t, body, "edgespeed_comparison_speedup_ratio_count 1")
}

func TestCompareWithUnbuildableTargets(t *testing.T) {
	p := NewProber(nil, ProberConfig{}, nil)
	c := NewComparer(p, nil, nil, CompareConfig{}, nil)

	res := c.Compare(context.Background(), "bad host", "also bad")

	assert.Equal(t, models.SourceInstrumented, res.Edge.Source)
	assert.True(t, res.Edge.IsEstimated)
	assert.True(t, res.Origin.IsEstimated)
	assert.False(t, math.IsNaN(res.Speedup) || math.IsInf(res.Speedup, 0))
	assert.GreaterOrEqual(t, res.Speedup, 0.1)
}
