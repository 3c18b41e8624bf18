package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"penguincli/internal/config"
	"penguincli/pkg/contracts"
)

const (
	ServiceName    = "penguin-report"
	ServiceVersion = contracts.Version
	TracerName     = "penguincli"
)

// Tracing owns the tracer used by the pipeline and whatever must be flushed
// or closed when the run ends.
type Tracing struct {
	Tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	file     *os.File
}

// InitTracing sets up tracing from configuration. When tracing is disabled
// a no-op tracer is returned. Spans are written as JSON to the trace file,
// or to stderr when no file is configured.
func InitTracing(cfg config.TelemetryConfig) (*Tracing, error) {
	if !cfg.Tracing {
		return NewTracing(nil)
	}

	if cfg.TraceFile == "" {
		return NewTracing(os.Stderr)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.TraceFile), 0755); err != nil {
		return nil, fmt.Errorf("create trace directory: %w", err)
	}
	f, err := os.Create(cfg.TraceFile)
	if err != nil {
		return nil, fmt.Errorf("create trace file: %w", err)
	}

	t, err := NewTracing(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	t.file = f
	return t, nil
}

// NewTracing exports spans synchronously to w. A nil writer disables tracing.
func NewTracing(w io.Writer) (*Tracing, error) {
	if w == nil {
		return &Tracing{Tracer: noop.NewTracerProvider().Tracer(TracerName)}, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	// A one-shot run ends right after the last span, so export synchronously
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(createResource()),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	return &Tracing{
		Tracer:   tp.Tracer(TracerName, trace.WithInstrumentationVersion(ServiceVersion)),
		provider: tp,
	}, nil
}

// Enabled reports whether spans are being exported.
func (t *Tracing) Enabled() bool {
	return t != nil && t.provider != nil
}

// Shutdown flushes pending spans and closes the trace file, if any.
func (t *Tracing) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	var errs []error
	if t.provider != nil {
		if err := t.provider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
	}
	if t.file != nil {
		if err := t.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close trace file: %w", err))
		}
		t.file = nil
	}
	return errors.Join(errs...)
}

// createResource describes this process to the exporter
func createResource() *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
		attribute.String("service.instance.id", GenerateTraceID()),
	)
}
