package llm

import (
	"context"
	"sync"
	"time"
)

// fakeCore is a scripted CoreLLM for middleware and client tests.
type fakeCore struct {
	mu       sync.Mutex
	model    string
	response string
	in, out  int
	err      error
	delay    time.Duration

	calls    int
	prompts  []string
	lastOpts map[string]any
	lastCtx  context.Context
	stamps   []time.Time
}

func newFakeCore() *fakeCore {
	return &fakeCore{model: "test-model", response: `{"ok": true}`, in: 12, out: 7}
}

func (f *fakeCore) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.lastOpts = opts
	f.lastCtx = ctx
	f.stamps = append(f.stamps, time.Now())
	delay, resp, in, out, err := f.delay, f.response, f.in, f.out, f.err
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", 0, 0, ctx.Err()
		}
	}
	if err != nil {
		return "", 0, 0, err
	}
	return resp, in, out, nil
}

func (f *fakeCore) GetModel() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.model
}

func (f *fakeCore) SetModel(m string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.model = m
}

func (f *fakeCore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// recordingCollector captures metrics calls.
type recordingCollector struct {
	mu         sync.Mutex
	counters   []metricCall
	histograms []metricCall
	gauges     []metricCall
}

type metricCall struct {
	name   string
	value  float64
	labels map[string]string
}

func (c *recordingCollector) RecordLatency(string, time.Duration, map[string]string) {}

func (c *recordingCollector) RecordGauge(name string, v float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges = append(c.gauges, metricCall{name, v, labels})
}

func (c *recordingCollector) RecordCounter(name string, v float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters = append(c.counters, metricCall{name, v, labels})
}

func (c *recordingCollector) RecordHistogram(name string, v float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.histograms = append(c.histograms, metricCall{name, v, labels})
}
