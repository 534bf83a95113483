package instrumentation

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithRun(JobDigest, "run-42").
		WithLabel("Work").
		WithThread("18c2f").
		WithDryRun(true).
		Build()

	if len(attrs) != 5 {
		t.Errorf("expected 5 attributes, got %d", len(attrs))
	}

	attrMap := make(map[string]interface{})
	for _, attr := range attrs {
		attrMap[string(attr.Key)] = attr.Value.AsInterface()
	}

	if attrMap[SpanAttrJob] != JobDigest {
		t.Errorf("expected job %q, got %v", JobDigest, attrMap[SpanAttrJob])
	}
	if attrMap[SpanAttrRunID] != "run-42" {
		t.Errorf("expected run id 'run-42', got %v", attrMap[SpanAttrRunID])
	}
	if attrMap[SpanAttrLabel] != "Work" {
		t.Errorf("expected label 'Work', got %v", attrMap[SpanAttrLabel])
	}
	if attrMap[SpanAttrThreadID] != "18c2f" {
		t.Errorf("expected thread '18c2f', got %v", attrMap[SpanAttrThreadID])
	}
	if attrMap[SpanAttrDryRun] != true {
		t.Errorf("expected dry_run true, got %v", attrMap[SpanAttrDryRun])
	}
}

func TestSpanAttributeBuilder_EmptyValues(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithRun(JobLabel, "").
		WithLabel("").
		WithThread("").
		Build()

	if len(attrs) != 1 {
		t.Errorf("expected 1 attribute (only job), got %d", len(attrs))
	}
}

func TestSpanNames(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(previous)

	ctx := context.Background()

	_, span := StartJobSpan(ctx, JobDigest, "run-1")
	span.End()
	_, span = StartCompletionSpan(ctx, PurposeSummarize, "gpt-4o")
	span.End()
	_, span = StartGoogleAPISpan(ctx, ServiceGmail, OperationModify)
	span.End()
	_, span = StartToolSpan(ctx, "inbox_label_run")
	span.End()

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}

	want := []string{"job.digest", "completion.summarize", "google.gmail.modify", "tool.inbox_label_run"}
	if len(names) != len(want) {
		t.Fatalf("expected %d spans, got %v", len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("span %d: expected %q, got %q", i, want[i], names[i])
		}
	}
}

func TestSetSpanError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	newTestProvider(t, ctx, false)

	_, span := StartSpan(ctx, "test-span")

	// Should not panic
	SetSpanError(span, errors.New("test error"))
	SetSpanError(span, nil) // nil error should be safe
	span.End()
}

func TestSetSpanSuccess(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	newTestProvider(t, ctx, false)

	_, span := StartSpan(ctx, "test-span")
	SetSpanSuccess(span)
	AddSpanEvent(span, "test-event")
	span.End()
}

func TestGetTraceID_NoSpan(t *testing.T) {
	ctx := context.Background()
	traceID := GetTraceID(ctx)
	if traceID != "" {
		t.Errorf("expected empty trace ID for context without span, got %q", traceID)
	}
}

func TestGetSpanID_NoSpan(t *testing.T) {
	ctx := context.Background()
	spanID := GetSpanID(ctx)
	if spanID != "" {
		t.Errorf("expected empty span ID for context without span, got %q", spanID)
	}
}
