package ratelimiting

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var decisionCounter metric.Int64Counter
var fallbackCounter metric.Int64Counter

func init() {
	meter := otel.Meter("lana/ratelimiting")

	var err error
	decisionCounter, err = meter.Int64Counter(
		"ratelimit/decisions",
		metric.WithDescription("Number of rate limit decisions by endpoint and result"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create decisions metric: %w", err))
	}

	fallbackCounter, err = meter.Int64Counter(
		"ratelimit/fallbacks",
		metric.WithDescription("Number of increments served by local counters after the shared store failed"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create fallbacks metric: %w", err))
	}
}

func recordDecision(ctx context.Context, endpoint string, decision Decision) {
	result := "allowed"
	if !decision.Allowed {
		result = "rejected_" + string(decision.RejectedBy)
	}
	decisionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("result", result),
	))
}

func recordFallback(ctx context.Context) {
	fallbackCounter.Add(ctx, 1)
}
