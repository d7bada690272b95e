package generator

import (
	"context"
	"strconv"
	"strings"
)

type Params struct {
	Model       string
	Temperature float64
	MaxTokens   int
	TopP        float64
}

type Request struct {
	SystemPrompt string
	UserPayload  string
	Params       Params
}

// Generator produces raw text for a prompt
//
// Errors wrap domain.ErrTransport when the upstream could not be reached, timed
// out or refused the request, and domain.ErrMalformedContent when it answered
// without usable content.
type Generator interface {
	Generate(ctx context.Context, request Request) (string, error)
}

const DefaultModel = "llama-3.1-8b-instant"

func LessonParams() Params {
	return Params{Model: DefaultModel, Temperature: 0.3, MaxTokens: 1200, TopP: 0.9}
}

// PrecomputeParams trades some variety for shorter, more predictable lessons
func PrecomputeParams() Params {
	return Params{Model: DefaultModel, Temperature: 0.2, MaxTokens: 800, TopP: 0.8}
}

func MathParams() Params {
	return Params{Model: DefaultModel, Temperature: 0.1, MaxTokens: 800, TopP: 0.9}
}

const lessonSystemPrompt = `Generate JSON lesson for topic. Structure:
{
  "introduction": {"definition": "Brief definition", "relevance": "Why important"},
  "sections": [{"title": "Title", "content": "• Point 1\n• Point 2\n• Point 3"}],
  "classifications": [{"type": "Type", "description": "Description"}],
  "quiz_questions": [{"question": "Q?", "options": ["A) opt1", "B) opt2", "C) opt3", "D) opt4"], "correct_answer": "B) opt2"}],
  "diagram": "Short text description of a helpful diagram"
}
Rules: 3 sections, 3-5 bullets each, 4 quiz questions, plain text, <600 tokens.@audience
Section order: 1) Introduction, 2) Classifications/Types (if applicable), 3) Detailed sections, 4) Importance/Applications.`

const MathSystemPrompt = `Return strictly JSON in this shape:
{
  "steps": [
    {"explanation": "", "expression": "", "result": ""}
  ],
  "final_answer": ""
}
Rules:
- Show clear, correct, minimal steps.
- Prefer numeric computations and exact forms where appropriate.
- Keep expressions parseable; avoid prose in fields.
- If word problem: define variables, set up equation(s), solve, and verify.
- Output only valid JSON (no markdown, no commentary).`

func LessonSystemPrompt(age *int) string {
	audience := " Write for a general audience."
	if age != nil {
		audience = " Adapt content for age " + strconv.Itoa(*age) + " years."
	}
	return strings.ReplaceAll(lessonSystemPrompt, "@audience", audience)
}

func LessonRequest(topic string, age *int, params Params) Request {
	return Request{
		SystemPrompt: LessonSystemPrompt(age),
		UserPayload:  "Topic: " + topic,
		Params:       params,
	}
}

func MathRequest(question string) Request {
	return Request{
		SystemPrompt: MathSystemPrompt,
		UserPayload:  question,
		Params:       MathParams(),
	}
}
