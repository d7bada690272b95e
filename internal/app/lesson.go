package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Amund211/lana/internal/adapters/cache"
	"github.com/Amund211/lana/internal/adapters/generator"
	"github.com/Amund211/lana/internal/domain"
	"github.com/Amund211/lana/internal/fingerprint"
	"github.com/Amund211/lana/internal/inflight"
	"github.com/Amund211/lana/internal/logging"
	"github.com/Amund211/lana/internal/normalize"
	"github.com/Amund211/lana/internal/reporting"
)

type LessonOrigin string

const (
	LessonOriginSocial    LessonOrigin = "social"
	LessonOriginCache     LessonOrigin = "cache"
	LessonOriginPopular   LessonOrigin = "popular"
	LessonOriginGenerated LessonOrigin = "generated"
	LessonOriginJoined    LessonOrigin = "joined"
	LessonOriginFallback  LessonOrigin = "fallback"
)

type LessonResult struct {
	Lesson domain.Lesson
	Origin LessonOrigin
}

// GetLesson never fails because of upstream problems, it degrades to the fallback lesson
type GetLesson func(ctx context.Context, topic string, age *int) LessonResult

func buildGenerateLesson(gen generator.Generator, params generator.Params) func(ctx context.Context, topic string, age *int) (domain.Lesson, error) {
	return func(ctx context.Context, topic string, age *int) (domain.Lesson, error) {
		raw, err := gen.Generate(ctx, generator.LessonRequest(topic, age, params))
		if err != nil {
			// NOTE: Generator implementations handle their own error reporting
			return domain.Lesson{}, fmt.Errorf("could not generate lesson: %w", err)
		}

		lesson, err := normalize.Lesson(raw, topic)
		if err != nil {
			return domain.Lesson{}, fmt.Errorf("could not normalize lesson: %w", err)
		}

		return lesson, nil
	}
}

// BuildGetLesson resolves a topic through, in order: social greetings, the
// exact lesson cache, precomputed popular lessons and finally generation.
//
// Concurrent misses for the same topic and age share one generation.
func BuildGetLesson(
	store *cache.Store,
	group *inflight.Group[domain.Lesson],
	gen generator.Generator,
	popular PopularTopics,
) GetLesson {
	generateLesson := buildGenerateLesson(gen, generator.LessonParams())

	return func(ctx context.Context, topic string, age *int) LessonResult {
		logger := logging.FromContext(ctx)

		if normalize.IsSocialGreeting(topic) {
			return LessonResult{Lesson: normalize.SocialLesson(), Origin: LessonOriginSocial}
		}

		key := fingerprint.Lesson(topic, age, fingerprint.ModeDefault)

		if lesson, ok := cache.GetJSON[domain.Lesson](ctx, store, cache.NamespaceLessons, key); ok {
			return LessonResult{Lesson: lesson, Origin: LessonOriginCache}
		}

		if popularTopic, ok := popular.Match(topic); ok {
			lesson, ok := cache.GetJSON[domain.Lesson](ctx, store, cache.NamespacePopular, fingerprint.Popular(popularTopic))
			// A failed warm-up stores the fallback, generating may still do better
			if ok && !lesson.IsFallback() {
				logger.InfoContext(ctx, "Serving precomputed popular lesson", "popularTopic", popularTopic)
				return LessonResult{Lesson: lesson, Origin: LessonOriginPopular}
			}
		}

		lesson, lookup, err := cache.GetOrCompute(ctx, store, group, cache.NamespaceLessons, key, func(computeCtx context.Context) (domain.Lesson, error) {
			return generateLesson(computeCtx, topic, age)
		})
		if err != nil {
			logger.WarnContext(ctx, "Serving fallback lesson", "error", err.Error())
			if errors.Is(err, inflight.ErrComputePanicked) {
				ctx = reporting.SetLessonOriginInContext(ctx, string(LessonOriginFallback))
				reporting.Report(ctx, err, map[string]string{"topic": topic})
			}
			return LessonResult{Lesson: normalize.FallbackLesson(topic), Origin: LessonOriginFallback}
		}

		switch lookup {
		case cache.LookupHit:
			return LessonResult{Lesson: lesson, Origin: LessonOriginCache}
		case cache.LookupJoined:
			return LessonResult{Lesson: lesson, Origin: LessonOriginJoined}
		}
		return LessonResult{Lesson: lesson, Origin: LessonOriginGenerated}
	}
}
