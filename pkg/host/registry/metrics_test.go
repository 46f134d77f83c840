package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rhuss/codebridge/pkg/api"
	"github.com/rhuss/codebridge/pkg/host"
)

// TestExecuteRecordsMetrics verifies that each routed execution increments
// the execution counter with the right provider/tool/status labels and
// records a duration observation.
func TestExecuteRecordsMetrics(t *testing.T) {
	reg := New()
	reg.Register(NewStaticProvider("metered").
		Add(schema(t, "ok-tool", `{"properties":{}}`),
			func(ctx context.Context, rc host.RunContext, args map[string]any) (any, error) {
				return "done", nil
			}).
		Add(schema(t, "bad-tool", `{"properties":{}}`),
			func(ctx context.Context, rc host.RunContext, args map[string]any) (any, error) {
				return nil, errors.New("boom")
			}))

	successBefore := counterValue(t, toolExecutions, "metered", "ok-tool", "success")
	errorBefore := counterValue(t, toolExecutions, "metered", "bad-tool", "error")
	durationBefore := histogramCount(t, toolDuration, "metered", "ok-tool")

	ctx := context.Background()
	if _, err := reg.Execute(ctx, runCtx(), api.ToolCallRequest{ToolName: "ok-tool", ToolCallID: "c1"}); err != nil {
		t.Fatalf("Execute(ok-tool) failed: %v", err)
	}
	if _, err := reg.Execute(ctx, runCtx(), api.ToolCallRequest{ToolName: "bad-tool", ToolCallID: "c2"}); err == nil {
		t.Fatal("Execute(bad-tool) expected error")
	}

	if delta := counterValue(t, toolExecutions, "metered", "ok-tool", "success") - successBefore; delta != 1 {
		t.Errorf("success counter delta = %f, want 1", delta)
	}
	if delta := counterValue(t, toolExecutions, "metered", "bad-tool", "error") - errorBefore; delta != 1 {
		t.Errorf("error counter delta = %f, want 1", delta)
	}
	if delta := histogramCount(t, toolDuration, "metered", "ok-tool") - durationBefore; delta != 1 {
		t.Errorf("duration sample delta = %d, want 1", delta)
	}
}

// TestPanicRecordedAsPanicStatus verifies that a recovered provider panic is
// counted under its own status label.
func TestPanicRecordedAsPanicStatus(t *testing.T) {
	reg := New()
	reg.Register(NewStaticProvider("volatile").
		Add(schema(t, "explode", `{"properties":{}}`),
			func(ctx context.Context, rc host.RunContext, args map[string]any) (any, error) {
				panic("kaboom")
			}))

	before := counterValue(t, toolExecutions, "volatile", "explode", "panic")

	if _, err := reg.Execute(context.Background(), runCtx(), api.ToolCallRequest{ToolName: "explode", ToolCallID: "c3"}); err == nil {
		t.Fatal("expected error from panicking tool")
	}

	if delta := counterValue(t, toolExecutions, "volatile", "explode", "panic") - before; delta != 1 {
		t.Errorf("panic counter delta = %f, want 1", delta)
	}
}

// counterValue reads the current value of one labeled counter.
func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting counter metric: %v", err)
	}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing counter metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

// histogramCount reads the observation count from a HistogramVec.
func histogramCount(t *testing.T, hv *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	m := &dto.Metric{}
	obs, err := hv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting histogram metric: %v", err)
	}
	if err := obs.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing histogram metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}
