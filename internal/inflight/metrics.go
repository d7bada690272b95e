package inflight

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var joinedCounter metric.Int64Counter

func init() {
	meter := otel.Meter("lana/inflight")

	var err error
	joinedCounter, err = meter.Int64Counter(
		"inflight/joined",
		metric.WithDescription("Number of callers that joined an in-flight computation"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create joined metric: %w", err))
	}
}

func recordJoin(ctx context.Context, group string) {
	joinedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("group", group)))
}
