package store

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of persistence operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"collection", "operation", "outcome"},
	)

	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operations_total",
			Help: "Total number of persistence operations",
		},
		[]string{"collection", "operation", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(operationDuration, operationsTotal)
}

// Instrument wraps s so that every collection operation is timed, counted,
// traced and debug-logged.
func Instrument(s Store, logger zerolog.Logger) Store {
	return &instrumentedStore{
		Store:  s,
		logger: logger.With().Str("component", "store").Logger(),
		tracer: otel.Tracer("github.com/ehr/records/internal/platform/store"),
	}
}

type instrumentedStore struct {
	Store
	logger zerolog.Logger
	tracer trace.Tracer
}

func (s *instrumentedStore) Collection(name string) Collection {
	return &instrumentedCollection{
		inner:  s.Store.Collection(name),
		name:   name,
		logger: s.logger,
		tracer: s.tracer,
	}
}

type instrumentedCollection struct {
	inner  Collection
	name   string
	logger zerolog.Logger
	tracer trace.Tracer
}

func (c *instrumentedCollection) observe(ctx context.Context, op string, fn func(context.Context) error) {
	ctx, span := c.tracer.Start(ctx, "store."+op, trace.WithAttributes(
		attribute.String("store.collection", c.name),
	))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	operationDuration.WithLabelValues(c.name, op, outcome).Observe(elapsed.Seconds())
	operationsTotal.WithLabelValues(c.name, op, outcome).Inc()

	evt := c.logger.Debug()
	if outcome == "error" {
		evt = c.logger.Warn().Err(err)
	}
	evt.Str("collection", c.name).
		Str("operation", op).
		Str("outcome", outcome).
		Dur("latency", elapsed).
		Msg("store operation")
}

func (c *instrumentedCollection) Insert(ctx context.Context, fields map[string]any) (r *Record, err error) {
	c.observe(ctx, "insert", func(ctx context.Context) error {
		r, err = c.inner.Insert(ctx, fields)
		return err
	})
	return r, err
}

func (c *instrumentedCollection) FindByID(ctx context.Context, id string) (r *Record, err error) {
	c.observe(ctx, "find_by_id", func(ctx context.Context) error {
		r, err = c.inner.FindByID(ctx, id)
		return err
	})
	return r, err
}

func (c *instrumentedCollection) Find(ctx context.Context, f Filter) (rs []*Record, err error) {
	c.observe(ctx, "find", func(ctx context.Context) error {
		rs, err = c.inner.Find(ctx, f)
		return err
	})
	return rs, err
}

func (c *instrumentedCollection) UpdateByID(ctx context.Context, id string, partial map[string]any) (r *Record, err error) {
	c.observe(ctx, "update_by_id", func(ctx context.Context) error {
		r, err = c.inner.UpdateByID(ctx, id, partial)
		return err
	})
	return r, err
}

func (c *instrumentedCollection) DeleteByID(ctx context.Context, id string) (err error) {
	c.observe(ctx, "delete_by_id", func(ctx context.Context) error {
		err = c.inner.DeleteByID(ctx, id)
		return err
	})
	return err
}

func (c *instrumentedCollection) Count(ctx context.Context, f Filter) (n int64, err error) {
	c.observe(ctx, "count", func(ctx context.Context) error {
		n, err = c.inner.Count(ctx, f)
		return err
	})
	return n, err
}

func (c *instrumentedCollection) SumBy(ctx context.Context, groupField, sumField string) (out []GroupTotal, err error) {
	c.observe(ctx, "sum_by", func(ctx context.Context) error {
		out, err = SumBy(ctx, c.inner, groupField, sumField)
		return err
	})
	return out, err
}
