package sqlio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmhodges/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/gandaldf/sqlio"

// Option configures an Executor.
type Option func(*Executor) error

// WithConfig sets the binder limits.
func WithConfig(cfg Config) Option {
	return func(e *Executor) error {
		e.s = New(e.s.dialect, cfg)
		return nil
	}
}

// WithCapabilities overrides the dialect's default capabilities, e.g. for a
// SQLite library built with SQLITE_ENABLE_UPDATE_DELETE_LIMIT.
func WithCapabilities(c Capabilities) Option {
	return func(e *Executor) error {
		e.r.Caps = c
		return nil
	}
}

// WithLogger sets the structured logger. Statements are logged at Debug,
// failures at Error. Bound values are never logged, only their count.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) error {
		if l == nil {
			return errors.New("sqlio: nil logger")
		}
		e.log = l
		return nil
	}
}

// WithClock sets the clock used to time statements.
func WithClock(clk clock.Clock) Option {
	return func(e *Executor) error {
		if clk == nil {
			return errors.New("sqlio: nil clock")
		}
		e.clk = clk
		return nil
	}
}

// WithTracerProvider sets where statement spans are sent. The default is
// the global otel provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Executor) error {
		if tp == nil {
			return errors.New("sqlio: nil tracer provider")
		}
		e.tracer = tp.Tracer(instrumentationName)
		return nil
	}
}

// WithMetrics registers statement counters and latency histograms on reg.
// Executors sharing a registerer share the collectors.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Executor) error {
		m, err := newMetrics(reg)
		if err != nil {
			return err
		}
		e.metrics = m
		return nil
	}
}

// metrics holds the prometheus collectors for executed statements.
type metrics struct {
	statements *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, errors.New("sqlio: nil prometheus registerer")
	}
	statements, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sqlio_statements_total",
		Help: "Number of statements executed, by operation and result",
	}, []string{"op", "result"}))
	if err != nil {
		return nil, err
	}
	latency, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sqlio_statement_duration_seconds",
		Help:    "A histogram of the time (in seconds) statements took to execute",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"op"}))
	if err != nil {
		return nil, err
	}
	return &metrics{statements: statements, latency: latency}, nil
}

// register registers c, returning the already registered collector when an
// identical one exists.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *metrics) observe(op string, dur time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.statements.WithLabelValues(op, result).Inc()
	m.latency.WithLabelValues(op).Observe(dur.Seconds())
}

// run binds st, then calls fn inside a span, timing it, counting it and
// logging it. Driver failures come back as *DatabaseError.
func (e *Executor) run(ctx context.Context, st Statement, fn func(ctx context.Context, q string, args []any) error) error {
	q, args, err := e.s.Write(st.SQL).Bind(st.Params).Build()
	if err != nil {
		return asUsage(fmt.Errorf("%s: %w", st.Op, err))
	}

	ctx, span := e.tracer.Start(ctx, "sqlio."+st.Op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", e.s.dialect.String()),
			attribute.String("db.operation", st.Op),
			attribute.String("db.sql.table", st.Table),
			attribute.String("db.statement", q),
		))
	defer span.End()

	start := e.clk.Now()
	err = fn(ctx, q, args)
	dur := e.clk.Now().Sub(start)
	e.metrics.observe(st.Op, dur, err)

	if err != nil {
		err = &DatabaseError{Op: st.Op, Table: st.Table, Err: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.log.ErrorContext(ctx, "statement failed",
			"op", st.Op, "table", st.Table, "sql", q, "argc", len(args), "dur", dur, "err", err)
		return err
	}
	e.log.DebugContext(ctx, "statement",
		"op", st.Op, "table", st.Table, "sql", q, "argc", len(args), "dur", dur)
	return nil
}
