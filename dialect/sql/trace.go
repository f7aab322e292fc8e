package sql

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/syssam/veloxdb/dialect"
)

const tracerName = "github.com/syssam/veloxdb/dialect/sql"

// TraceDriver wraps a Driver and records one client span per statement.
type TraceDriver struct {
	dialect.Driver
	tracer trace.Tracer
}

// TraceOption configures the TraceDriver.
type TraceOption func(*TraceDriver)

// WithTracerProvider sets the provider spans are created from. The global
// provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) TraceOption {
	return func(d *TraceDriver) {
		d.tracer = tp.Tracer(tracerName)
	}
}

// NewTraceDriver wraps a Driver with OpenTelemetry tracing.
func NewTraceDriver(drv dialect.Driver, opts ...TraceOption) *TraceDriver {
	d := &TraceDriver{
		Driver: drv,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Query executes a query inside a span.
func (d *TraceDriver) Query(ctx context.Context, query string, args, v any) error {
	ctx, span := start(ctx, d.tracer, d.Dialect(), "query", query, args)
	defer span.End()
	return finish(span, d.Driver.Query(ctx, query, args, v))
}

// Exec executes a statement inside a span.
func (d *TraceDriver) Exec(ctx context.Context, query string, args, v any) error {
	ctx, span := start(ctx, d.tracer, d.Dialect(), "exec", query, args)
	defer span.End()
	return finish(span, d.Driver.Exec(ctx, query, args, v))
}

// Tx starts a transaction whose statements are traced as well.
func (d *TraceDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &TraceTx{Tx: tx, tracer: d.tracer, dialect: d.Dialect()}, nil
}

// TraceTx wraps a transaction with tracing.
type TraceTx struct {
	dialect.Tx
	tracer  trace.Tracer
	dialect string
}

// Query executes a query within the transaction inside a span.
func (tx *TraceTx) Query(ctx context.Context, query string, args, v any) error {
	ctx, span := start(ctx, tx.tracer, tx.dialect, "tx query", query, args)
	defer span.End()
	return finish(span, tx.Tx.Query(ctx, query, args, v))
}

// Exec executes a statement within the transaction inside a span.
func (tx *TraceTx) Exec(ctx context.Context, query string, args, v any) error {
	ctx, span := start(ctx, tx.tracer, tx.dialect, "tx exec", query, args)
	defer span.End()
	return finish(span, tx.Tx.Exec(ctx, query, args, v))
}

func start(ctx context.Context, tracer trace.Tracer, system, name, query string, args any) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", system),
			attribute.String("db.statement", query),
			attribute.Int("db.args", argCount(args)),
		),
	)
}

func finish(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

var (
	_ dialect.Driver = (*TraceDriver)(nil)
	_ dialect.Tx     = (*TraceTx)(nil)
)
