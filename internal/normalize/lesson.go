// Package normalize turns free-form generator output into the structured shapes
// returned to clients.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Amund211/lana/internal/domain"
)

// Sections with content at most this long do not count as a usable lesson
const minSectionContentLength = 10

// Lesson parses generator output into a lesson
//
// Returns an error wrapping domain.ErrMalformedContent when the output can not
// be parsed, even after repair, or when it does not contain a single section
// with meaningful content.
func Lesson(raw string, topic string) (domain.Lesson, error) {
	object, err := decodeObject(raw)
	if err != nil {
		return domain.Lesson{}, fmt.Errorf("%w: lesson for %q: %w", domain.ErrMalformedContent, topic, err)
	}

	lesson := domain.Lesson{
		Introduction:    introduction(object["introduction"]),
		Classifications: classifications(object["classifications"]),
		Sections:        sections(object["sections"]),
		Diagram:         stringField(object, "diagram", "diagram_description"),
		Quiz:            quiz(field(object, "quiz", "quiz_questions", "questions")),
		Source:          domain.LessonSourceGenerated,
	}

	if !hasSubstantialSection(lesson.Sections) {
		return domain.Lesson{}, fmt.Errorf("%w: lesson for %q has no section with content", domain.ErrMalformedContent, topic)
	}

	return lesson, nil
}

// LessonOrFallback is Lesson, substituting the fallback lesson for topic on any failure
func LessonOrFallback(raw string, topic string) domain.Lesson {
	lesson, err := Lesson(raw, topic)
	if err != nil {
		return FallbackLesson(topic)
	}
	return lesson
}

// FallbackLesson is the deterministic stub served when no usable lesson could be produced
func FallbackLesson(topic string) domain.Lesson {
	topic = strings.TrimSpace(topic)
	return domain.Lesson{
		Introduction:    fmt.Sprintf("Learn about %s", topic),
		Classifications: []domain.Classification{},
		Sections: []domain.Section{
			{
				Title:   fmt.Sprintf("Introduction to %s", topic),
				Content: fmt.Sprintf("This covers the basics of %s.", topic),
			},
		},
		Diagram: "",
		Quiz: []domain.QuizItem{
			{
				Question: fmt.Sprintf("What is %s?", topic),
				Options:  []string{"A) A concept", "B) A skill", "C) Both"},
				Answer:   "C) Both",
			},
		},
		Source: domain.LessonSourceFallback,
	}
}

func hasSubstantialSection(sections []domain.Section) bool {
	for _, section := range sections {
		if len(strings.TrimSpace(section.Content)) > minSectionContentLength {
			return true
		}
	}
	return false
}

func decodeObject(raw string) (map[string]any, error) {
	content := extractObject(raw)
	if content == "" {
		return nil, errors.New("empty content")
	}

	var object map[string]any
	err := json.Unmarshal([]byte(content), &object)
	if err == nil && object != nil {
		return object, nil
	}

	repaired := repair(content)
	var repairedObject map[string]any
	repairErr := json.Unmarshal([]byte(repaired), &repairedObject)
	if repairErr != nil {
		return nil, fmt.Errorf("failed to parse repaired content: %w", repairErr)
	}
	if repairedObject == nil {
		return nil, errors.New("content is not an object")
	}
	return repairedObject, nil
}

func introduction(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		parts := make([]string, 0, 2)
		for _, key := range []string{"definition", "relevance"} {
			if part := text(v[key]); part != "" {
				parts = append(parts, part)
			}
		}
		return strings.TrimSpace(strings.Join(parts, "\n"))
	}
	return ""
}

func classifications(value any) []domain.Classification {
	items, _ := value.([]any)
	result := make([]domain.Classification, 0, len(items))
	for _, item := range items {
		object, ok := item.(map[string]any)
		if !ok {
			continue
		}
		classification := domain.Classification{
			Type:        stringField(object, "type", "name"),
			Description: stringField(object, "description"),
		}
		if classification.Type == "" || classification.Description == "" {
			continue
		}
		result = append(result, classification)
	}
	return result
}

func sections(value any) []domain.Section {
	items, _ := value.([]any)
	result := make([]domain.Section, 0, len(items))
	for _, item := range items {
		object, ok := item.(map[string]any)
		if !ok {
			continue
		}
		section := domain.Section{
			Title:   stringField(object, "title", "heading"),
			Content: lines(field(object, "content", "body")),
		}
		if section.Title == "" || section.Content == "" {
			continue
		}
		result = append(result, section)
	}
	return result
}

func quiz(value any) []domain.QuizItem {
	items, _ := value.([]any)
	result := make([]domain.QuizItem, 0, len(items))
	for _, item := range items {
		object, ok := item.(map[string]any)
		if !ok {
			continue
		}

		question := stringField(object, "question", "q", "prompt")
		if question == "" {
			continue
		}
		options := quizOptions(object["options"])

		result = append(result, domain.QuizItem{
			Question: question,
			Options:  options,
			Answer:   quizAnswer(field(object, "answer", "correct_answer", "correct"), options),
		})
	}
	return result
}

func quizOptions(value any) []string {
	items, _ := value.([]any)
	options := make([]string, 0, len(items))
	for _, item := range items {
		var option string
		if object, ok := item.(map[string]any); ok {
			option = stringField(object, "text", "option", "label", "value")
		} else {
			option = text(item)
		}
		if option != "" {
			options = append(options, option)
		}
	}
	return options
}

// quizAnswer resolves numeric answers as indices into options
func quizAnswer(value any, options []string) string {
	if index, ok := value.(float64); ok && index == float64(int(index)) {
		if i := int(index); i >= 0 && i < len(options) {
			return options[i]
		}
	}
	return text(value)
}

// lines accepts either a string or a list of strings
func lines(value any) string {
	items, ok := value.([]any)
	if !ok {
		return text(value)
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if part := text(item); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "\n")
}

// field returns the value under the first of keys present in object
func field(object map[string]any, keys ...string) any {
	for _, key := range keys {
		if value, ok := object[key]; ok && value != nil {
			return value
		}
	}
	return nil
}

// stringField returns the first non-empty text under keys
func stringField(object map[string]any, keys ...string) string {
	for _, key := range keys {
		if value := text(object[key]); value != "" {
			return value
		}
	}
	return ""
}

func text(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}
