package cache

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var lookupCounter metric.Int64Counter

func init() {
	meter := otel.Meter("lana/cache")

	var err error
	lookupCounter, err = meter.Int64Counter(
		"cache/lookups",
		metric.WithDescription("Number of cache lookups by namespace and result"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create lookup metric: %w", err))
	}
}

func recordLookup(ctx context.Context, ns Namespace, result string) {
	lookupCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("namespace", string(ns)),
		attribute.String("result", result),
	))
}
