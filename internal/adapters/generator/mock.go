package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type mockedGenerator struct{}

// NewMockedGenerator returns a generator producing canned content, for local development
func NewMockedGenerator() Generator {
	return mockedGenerator{}
}

func (mockedGenerator) Generate(ctx context.Context, request Request) (string, error) {
	if request.SystemPrompt == MathSystemPrompt {
		return fmt.Sprintf(
			`{"steps": [{"explanation": "Read the problem", "expression": %q, "result": ""}], "final_answer": "42"}`,
			request.UserPayload,
		), nil
	}

	topic := strings.TrimSpace(strings.TrimPrefix(request.UserPayload, "Topic: "))
	lesson := map[string]any{
		"introduction": map[string]string{
			"definition": fmt.Sprintf("%s is a topic worth learning about.", topic),
			"relevance":  "This lesson was generated locally without a language model.",
		},
		"sections": []map[string]string{
			{"title": "Overview", "content": fmt.Sprintf("• What %s is\n• Where it shows up\n• Why it matters", topic)},
			{"title": "Key ideas", "content": "• Start with the basics\n• Build on examples\n• Practice"},
			{"title": "Applications", "content": fmt.Sprintf("• %s in everyday life\n• %s at work", topic, topic)},
		},
		"classifications": []map[string]string{},
		"quiz_questions": []map[string]any{
			{
				"question":       "What is this lesson about?",
				"options":        []string{"A) " + topic, "B) Something else"},
				"correct_answer": "A) " + topic,
			},
		},
		"diagram": fmt.Sprintf("%s -> examples -> practice", topic),
	}

	data, err := json.Marshal(lesson)
	if err != nil {
		return "", fmt.Errorf("failed to marshal mocked lesson: %w", err)
	}
	return string(data), nil
}
