package exporters

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/sdk/trace"
)

// ConsoleExporter writes finished spans to stderr, one line per span. Meant
// for local development when no collector is running.
type ConsoleExporter struct{}

// NewConsoleExporter creates a console span exporter
func NewConsoleExporter() *ConsoleExporter {
	return &ConsoleExporter{}
}

func (c *ConsoleExporter) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	for _, span := range spans {
		fmt.Fprintf(os.Stderr, "span %s trace=%s duration=%s status=%s\n",
			span.Name(),
			span.SpanContext().TraceID(),
			span.EndTime().Sub(span.StartTime()),
			span.Status().Code,
		)
	}
	return nil
}

func (c *ConsoleExporter) Shutdown(ctx context.Context) error {
	return nil
}
