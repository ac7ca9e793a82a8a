package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestWritePrometheusIsSortedAndLabelled(t *testing.T) {
	m := New()
	m.ObserveAggregateOperation("payment.record", "ok", 20*time.Millisecond)
	m.ObserveAggregateOperation("course_progress.record", "ok", 5*time.Millisecond)
	m.ObserveAggregateOperation("payment.record", "conflict", time.Millisecond)
	m.IncAggregateConflict("payment.record")

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()

	first := strings.Index(out, `cc_aggregate_operations_total{op="course_progress.record",status="ok"} 1`)
	second := strings.Index(out, `cc_aggregate_operations_total{op="payment.record",status="conflict"} 1`)
	third := strings.Index(out, `cc_aggregate_operations_total{op="payment.record",status="ok"} 1`)
	if first < 0 || second < 0 || third < 0 {
		t.Fatalf("missing aggregate series:\n%s", out)
	}
	if !(first < second && second < third) {
		t.Fatalf("series not sorted: %d %d %d", first, second, third)
	}
	if !strings.Contains(out, `cc_aggregate_conflicts_total{op="payment.record"} 1`) {
		t.Fatalf("missing conflict counter:\n%s", out)
	}
	if !strings.Contains(out, `cc_aggregate_operation_duration_seconds_bucket{op="payment.record",le="+Inf"} 2`) {
		t.Fatalf("missing histogram +Inf bucket:\n%s", out)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("payments", "GET", "/x", "200", time.Millisecond)
	m.ObserveSweep("ok", 1, 0, time.Second)
	m.ObserveEntitlement(true, "cache")
	m.IncOutboxPublished("payment.completed")
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil WritePrometheus: %v", err)
	}
}

func TestObserveSweepAndEntitlement(t *testing.T) {
	m := New()
	m.ObserveSweep("ok", 3, 1, 2*time.Second)
	m.ObserveEntitlement(false, "db")

	var buf bytes.Buffer
	_ = m.WritePrometheus(&buf)
	out := buf.String()
	for _, want := range []string{
		`cc_subscription_sweep_runs_total{status="ok"} 1`,
		"cc_subscription_sweep_expired_total 3",
		"cc_subscription_sweep_skipped_total 1",
		`cc_entitlement_checks_total{result="denied",source="db"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" a=1, b = 2 ,bad,=x,c=")
	if len(got) != 2 || got["a"] != "1" || got["b"] != "2" {
		t.Fatalf("ParseHeaders: got=%v", got)
	}
	if ParseHeaders("") != nil {
		t.Fatalf("empty headers should be nil")
	}
}
