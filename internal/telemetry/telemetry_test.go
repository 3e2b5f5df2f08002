package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInstrumentsRecordOnNoopProvider(t *testing.T) {
	ctx := context.Background()
	inst := NewInstruments()
	if inst.Assessments == nil || inst.ModelLatency == nil || inst.ModelReloads == nil {
		t.Fatalf("expected all instruments, got %+v", inst)
	}
	inst.Assessments.Add(ctx, 1)
	inst.ModelLatency.Record(ctx, 1.5)
	inst.ModelReloads.Add(ctx, 1)
}

func TestTracerStartsSpan(t *testing.T) {
	ctx, span := Tracer().Start(context.Background(), "risk.assess")
	defer span.End()
	if ctx == nil {
		t.Fatal("expected a derived context")
	}
}

func TestCollectorEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	if got := collectorEndpoint("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); got != defaultEndpoint {
		t.Fatalf("expected default endpoint, got %s", got)
	}

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	if got := collectorEndpoint("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); got != "collector:4317" {
		t.Fatalf("expected shared endpoint, got %s", got)
	}

	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "traces:4317")
	if got := collectorEndpoint("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); got != "traces:4317" {
		t.Fatalf("expected per-signal endpoint, got %s", got)
	}
}

func TestFlushBoundsShutdown(t *testing.T) {
	start := time.Now()
	var hadDeadline bool
	Flush(context.Background(), func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		return errors.New("collector unreachable")
	})
	if !hadDeadline {
		t.Fatal("expected shutdown to run with a deadline")
	}
	if time.Since(start) > flushTimeout {
		t.Fatal("flush took longer than its timeout")
	}
}
