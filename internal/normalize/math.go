package normalize

import (
	"fmt"
	"strings"

	"github.com/Amund211/lana/internal/domain"
)

// ParseMathSolution parses generator output into a math solution
func ParseMathSolution(raw string) (domain.MathSolution, error) {
	object, err := decodeObject(raw)
	if err != nil {
		return domain.MathSolution{}, fmt.Errorf("%w: math solution: %w", domain.ErrMalformedContent, err)
	}

	items, _ := field(object, "steps").([]any)
	steps := make([]domain.MathStep, 0, len(items))
	for _, item := range items {
		step, ok := item.(map[string]any)
		if !ok {
			continue
		}
		steps = append(steps, domain.MathStep{
			Explanation: stringField(step, "explanation", "description"),
			Expression:  stringField(step, "expression"),
			Result:      stringField(step, "result"),
		})
	}

	finalAnswer := stringField(object, "final_answer", "answer")
	if finalAnswer == "" {
		finalAnswer = "No answer provided"
	}

	return domain.MathSolution{
		FinalAnswer: finalAnswer,
		Steps:       steps,
	}, nil
}

// MathSolution is ParseMathSolution, but never fails
//
// Output that can not be parsed is returned verbatim as the final answer.
func MathSolution(raw string, question string) domain.MathSolution {
	content := strings.TrimSpace(raw)
	if content == "" {
		return domain.MathSolution{FinalAnswer: "Unable to solve", Steps: []domain.MathStep{}}
	}

	solution, err := ParseMathSolution(content)
	if err == nil {
		return solution
	}

	return domain.MathSolution{
		FinalAnswer: content,
		Steps: []domain.MathStep{
			{Explanation: "LLM response", Expression: strings.TrimSpace(question), Result: content},
		},
	}
}
