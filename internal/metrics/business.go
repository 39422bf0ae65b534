package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics records what the service does at the operation level,
// independent of transport. The key, field and backfill use cases all
// report through it.
//
// Domains and operations are low-cardinality constants ("keys"/"dek_get",
// "fields"/"field_encrypt", "backfill"/"backfill_run"), statuses are
// "success" or "error", cache results "hit" or "miss".
type BusinessMetrics interface {
	// RecordOperation counts one completed operation.
	RecordOperation(ctx context.Context, domain, operation, status string)

	// RecordDuration feeds the operation latency histogram, in seconds.
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)

	// RecordCacheAccess counts one cache lookup by outcome.
	RecordCacheAccess(ctx context.Context, cache, result string)
}

type businessMetrics struct {
	operations   metric.Int64Counter
	durations    metric.Float64Histogram
	cacheLookups metric.Int64Counter
}

// NewBusinessMetrics builds the OpenTelemetry-backed recorder. The namespace
// prefixes every metric name, keeping this service's series apart from
// anything else a shared Prometheus scrapes.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operations, err := meter.Int64Counter(
		namespace+"_operations_total",
		metric.WithDescription("Completed business operations by domain, operation and status"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register operation counter: %w", err)
	}

	durations, err := meter.Float64Histogram(
		namespace+"_operation_duration_seconds",
		metric.WithDescription("Business operation latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register duration histogram: %w", err)
	}

	cacheLookups, err := meter.Int64Counter(
		namespace+"_cache_access_total",
		metric.WithDescription("Cache lookups by cache name and outcome"),
		metric.WithUnit("{access}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register cache counter: %w", err)
	}

	return &businessMetrics{
		operations:   operations,
		durations:    durations,
		cacheLookups: cacheLookups,
	}, nil
}

func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("domain", domain),
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durations.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("domain", domain),
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

func (b *businessMetrics) RecordCacheAccess(ctx context.Context, cache, result string) {
	b.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", cache),
		attribute.String("result", result),
	))
}

// NoOpBusinessMetrics satisfies BusinessMetrics without recording anything.
// The container hands it out when metrics are disabled so callers never need
// a nil check.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics returns the disabled-metrics recorder.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

func (n *NoOpBusinessMetrics) RecordOperation(context.Context, string, string, string) {}

func (n *NoOpBusinessMetrics) RecordDuration(context.Context, string, string, time.Duration, string) {
}

func (n *NoOpBusinessMetrics) RecordCacheAccess(context.Context, string, string) {}
