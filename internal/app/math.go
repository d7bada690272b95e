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
	"github.com/Amund211/lana/internal/mathsolve"
	"github.com/Amund211/lana/internal/normalize"
)

const unsolvedAnswer = "Unable to solve"

type SolveMath func(ctx context.Context, question string) domain.MathSolution

func UnsolvedMathSolution() domain.MathSolution {
	return domain.MathSolution{FinalAnswer: unsolvedAnswer, Steps: []domain.MathStep{}}
}

func solveMathWithoutCache(ctx context.Context, gen generator.Generator, question string) (domain.MathSolution, error) {
	solution, err := mathsolve.Solve(question)
	if err == nil {
		return solution, nil
	}
	if errors.Is(err, mathsolve.ErrDivisionByZero) {
		return domain.MathSolution{
			FinalAnswer: "Undefined",
			Steps: []domain.MathStep{
				{Explanation: "Division by zero is undefined", Expression: question},
			},
		}, nil
	}

	logging.FromContext(ctx).InfoContext(ctx, "Falling back to generator for math question")

	raw, err := gen.Generate(ctx, generator.MathRequest(question))
	if err != nil {
		return domain.MathSolution{}, fmt.Errorf("could not generate math solution: %w", err)
	}

	return normalize.MathSolution(raw, question), nil
}

// BuildSolveMath solves arithmetic and linear equations directly and asks the generator for the rest
func BuildSolveMath(
	store *cache.Store,
	group *inflight.Group[domain.MathSolution],
	gen generator.Generator,
) SolveMath {
	return func(ctx context.Context, question string) domain.MathSolution {
		key := fingerprint.Text("math", question)

		solution, _, err := cache.GetOrCompute(ctx, store, group, cache.NamespaceMath, key, func(computeCtx context.Context) (domain.MathSolution, error) {
			return solveMathWithoutCache(computeCtx, gen, question)
		})
		if err != nil {
			logging.FromContext(ctx).WarnContext(ctx, "Could not solve math question", "error", err.Error())
			return UnsolvedMathSolution()
		}

		return solution
	}
}
