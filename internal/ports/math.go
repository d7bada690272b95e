package ports

import (
	"log/slog"
	"net/http"

	"github.com/Amund211/lana/internal/app"
	"github.com/Amund211/lana/internal/domain"
	"github.com/Amund211/lana/internal/logging"
	"github.com/Amund211/lana/internal/validation"
)

type solveMathRequest struct {
	Question string `json:"question"`
}

type mathStepResponse struct {
	Explanation string `json:"explanation"`
	Expression  string `json:"expression,omitempty"`
	Result      string `json:"result,omitempty"`
}

type mathSolutionResponse struct {
	FinalAnswer string             `json:"final_answer"`
	Steps       []mathStepResponse `json:"steps"`
}

func mathSolutionToResponse(solution domain.MathSolution) mathSolutionResponse {
	steps := make([]mathStepResponse, 0, len(solution.Steps))
	for _, step := range solution.Steps {
		steps = append(steps, mathStepResponse(step))
	}
	return mathSolutionResponse{
		FinalAnswer: solution.FinalAnswer,
		Steps:       steps,
	}
}

func MakeSolveMathHandler(
	solveMath app.SolveMath,
	middleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	handler := func(w http.ResponseWriter, r *http.Request) {
		var request solveMathRequest
		if err := decodeBody(w, r, &request); err != nil {
			writeInvalidBody(w, r, err)
			return
		}

		question, err := validation.MathQuestion(request.Question)
		if err != nil {
			writeValidationError(w, r, err)
			return
		}

		ctx := logging.AddMetaToContext(r.Context(), slog.String("question", question))
		r = r.WithContext(ctx)

		solution := solveMath(ctx, question)

		writeJSON(w, r, http.StatusOK, mathSolutionToResponse(solution))
	}

	return middleware(handler)
}
