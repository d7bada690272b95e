// Package mathsolve solves arithmetic expressions and linear equations in one
// variable exactly, without involving a language model.
package mathsolve

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/Amund211/lana/internal/domain"
)

// Digits after the decimal point when the input itself used decimals
const decimalPrecision = 10

// Solve returns a worked solution for question
//
// Returns an error wrapping ErrUnsupported for anything that is not an
// arithmetic expression or a linear equation in a single variable.
func Solve(question string) (domain.MathSolution, error) {
	question = strings.TrimSpace(question)
	decimal := strings.Contains(question, ".")

	lhs, rhs, isEquation := strings.Cut(question, "=")
	if !isEquation {
		value, variable, err := parse(question, "")
		if err != nil {
			return domain.MathSolution{}, err
		}
		if variable != "" {
			return domain.MathSolution{}, fmt.Errorf("%w: expression with a variable", ErrUnsupported)
		}

		result := formatRat(value.constant, decimal)
		return domain.MathSolution{
			FinalAnswer: result,
			Steps: []domain.MathStep{
				{Explanation: "Parse the expression", Expression: question},
				{Explanation: "Simplify", Result: result},
			},
		}, nil
	}

	if strings.Contains(rhs, "=") {
		return domain.MathSolution{}, fmt.Errorf("%w: more than one equals sign", ErrUnsupported)
	}
	lhs = strings.TrimSpace(lhs)
	rhs = strings.TrimSpace(rhs)

	left, variable, err := parse(lhs, "")
	if err != nil {
		return domain.MathSolution{}, err
	}
	right, variable, err := parse(rhs, variable)
	if err != nil {
		return domain.MathSolution{}, err
	}

	// coef*x = constant
	coef := new(big.Rat).Sub(left.coef, right.coef)
	rest := new(big.Rat).Sub(right.constant, left.constant)

	steps := []domain.MathStep{
		{Explanation: "Parse the equation", Expression: fmt.Sprintf("%s = %s", lhs, rhs)},
	}

	if variable == "" || coef.Sign() == 0 {
		answer := "No solution"
		if rest.Sign() == 0 {
			answer = "All values satisfy the equation"
		}
		steps = append(steps, domain.MathStep{
			Explanation: "Simplify both sides",
			Expression:  fmt.Sprintf("0 = %s", formatRat(rest, decimal)),
			Result:      answer,
		})
		return domain.MathSolution{FinalAnswer: answer, Steps: steps}, nil
	}

	solution := new(big.Rat).Quo(rest, coef)
	answer := formatRat(solution, decimal)
	steps = append(steps,
		domain.MathStep{
			Explanation: "Move the variable terms to the left and the constants to the right",
			Expression:  fmt.Sprintf("%s = %s", formatTerm(coef, variable, decimal), formatRat(rest, decimal)),
		},
		domain.MathStep{
			Explanation: fmt.Sprintf("Solve for %s", variable),
			Result:      fmt.Sprintf("%s = %s", variable, answer),
		},
	)
	return domain.MathSolution{FinalAnswer: answer, Steps: steps}, nil
}

func formatTerm(coef *big.Rat, variable string, decimal bool) string {
	switch {
	case coef.Cmp(big.NewRat(1, 1)) == 0:
		return variable
	case coef.Cmp(big.NewRat(-1, 1)) == 0:
		return "-" + variable
	case !coef.IsInt() && !decimal:
		return "(" + coef.RatString() + ")" + variable
	}
	return formatRat(coef, decimal) + variable
}

func formatRat(value *big.Rat, decimal bool) string {
	if value.IsInt() {
		return value.Num().String()
	}
	if !decimal {
		return value.RatString()
	}
	formatted := strings.TrimRight(value.FloatString(decimalPrecision), "0")
	return strings.TrimSuffix(formatted, ".")
}
