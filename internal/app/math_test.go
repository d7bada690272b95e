package app_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/Amund211/lana/internal/adapters/generator"
	"github.com/Amund211/lana/internal/app"
	"github.com/Amund211/lana/internal/domain"
	"github.com/Amund211/lana/internal/inflight"
	"github.com/stretchr/testify/require"
)

func TestBuildSolveMath(t *testing.T) {
	t.Parallel()

	newSolveMath := func(t *testing.T, gen *stubGenerator) app.SolveMath {
		return app.BuildSolveMath(newStore(t), inflight.NewGroup[domain.MathSolution]("math", time.Minute), gen)
	}

	t.Run("linear equations are solved without the generator", func(t *testing.T) {
		t.Parallel()

		gen := &stubGenerator{respond: respondWith("", fmt.Errorf("should not be called"))}
		solveMath := newSolveMath(t, gen)

		solution := solveMath(t.Context(), "2x + 3 = 11")
		require.Equal(t, "4", solution.FinalAnswer)
		require.Len(t, solution.Steps, 3)
		require.Equal(t, 0, gen.calls())
	})

	t.Run("division by zero", func(t *testing.T) {
		t.Parallel()

		gen := &stubGenerator{respond: respondWith("", fmt.Errorf("should not be called"))}
		solution := newSolveMath(t, gen)(t.Context(), "1 / (2 - 2)")
		require.Equal(t, "Undefined", solution.FinalAnswer)
		require.Equal(t, 0, gen.calls())
	})

	t.Run("unsupported questions go to the generator and are cached", func(t *testing.T) {
		t.Parallel()

		gen := &stubGenerator{respond: respondWith(`{"steps":[{"explanation":"Factor","expression":"(x-2)(x+2)=0","result":"x=2 or x=-2"}],"final_answer":"x = ±2"}`, nil)}
		solveMath := newSolveMath(t, gen)

		for range 2 {
			solution := solveMath(t.Context(), "x^2 = 4")
			require.Equal(t, domain.MathSolution{
				FinalAnswer: "x = ±2",
				Steps: []domain.MathStep{
					{Explanation: "Factor", Expression: "(x-2)(x+2)=0", Result: "x=2 or x=-2"},
				},
			}, solution)
		}
		require.Equal(t, 1, gen.calls())
		require.Equal(t, generator.MathRequest("x^2 = 4"), gen.requests[0])
	})

	t.Run("unparseable generator output is used as the answer", func(t *testing.T) {
		t.Parallel()

		gen := &stubGenerator{respond: respondWith("x equals two or minus two", nil)}
		solution := newSolveMath(t, gen)(t.Context(), `\sqrt{4}`)
		require.Equal(t, "x equals two or minus two", solution.FinalAnswer)
	})

	t.Run("generator failure", func(t *testing.T) {
		t.Parallel()

		gen := &stubGenerator{respond: respondWith("", fmt.Errorf("%w: timeout", domain.ErrTransport))}
		solveMath := newSolveMath(t, gen)

		require.Equal(t, app.UnsolvedMathSolution(), solveMath(t.Context(), "x^3 = 8"))
		require.Equal(t, app.UnsolvedMathSolution(), solveMath(t.Context(), "x^3 = 8"))
		require.Equal(t, 2, gen.calls())
	})
}
