package app

import (
	"context"
	"sync/atomic"

	"github.com/Amund211/lana/internal/adapters/cache"
	"github.com/Amund211/lana/internal/adapters/generator"
	"github.com/Amund211/lana/internal/domain"
	"github.com/Amund211/lana/internal/fingerprint"
	"github.com/Amund211/lana/internal/logging"
	"github.com/Amund211/lana/internal/normalize"
	"golang.org/x/sync/errgroup"
)

const warmConcurrency = 3

type WarmSummary struct {
	Precomputed int
	Skipped     int
	Fallbacks   int
}

type WarmPopularLessons func(ctx context.Context) WarmSummary

// BuildWarmPopularLessons precomputes a lesson for every popular topic not already in the cache.
//
// Failures are stored as the fallback lesson so the entry is never left cold.
func BuildWarmPopularLessons(
	store *cache.Store,
	gen generator.Generator,
	popular PopularTopics,
) WarmPopularLessons {
	generateLesson := buildGenerateLesson(gen, generator.PrecomputeParams())

	return func(ctx context.Context) WarmSummary {
		logger := logging.FromContext(ctx)

		var precomputed, skipped, fallbacks atomic.Int64

		g := errgroup.Group{}
		g.SetLimit(warmConcurrency)
		for _, topic := range popular.Topics() {
			g.Go(func() error {
				key := fingerprint.Popular(topic)
				if store.Exists(ctx, cache.NamespacePopular, key) {
					// A fallback from an earlier failed warm-up counts as cold
					existing, ok := cache.GetJSON[domain.Lesson](ctx, store, cache.NamespacePopular, key)
					if ok && !existing.IsFallback() {
						skipped.Add(1)
						return nil
					}
				}

				lesson, err := generateLesson(ctx, topic, nil)
				if err != nil {
					logger.WarnContext(ctx, "Failed to precompute popular lesson", "topic", topic, "error", err.Error())
					lesson = normalize.FallbackLesson(topic)
					fallbacks.Add(1)
				} else {
					lesson.Source = domain.LessonSourcePrecomputed
					precomputed.Add(1)
				}

				if !cache.SetJSON(ctx, store, cache.NamespacePopular, key, lesson, 0) {
					logger.WarnContext(ctx, "Failed to store popular lesson in shared backend", "topic", topic)
				}
				return nil
			})
		}
		// Workers never return errors
		_ = g.Wait()

		summary := WarmSummary{
			Precomputed: int(precomputed.Load()),
			Skipped:     int(skipped.Load()),
			Fallbacks:   int(fallbacks.Load()),
		}
		logger.InfoContext(ctx, "Warmed popular lessons",
			"precomputed", summary.Precomputed,
			"skipped", summary.Skipped,
			"fallbacks", summary.Fallbacks,
		)
		return summary
	}
}
