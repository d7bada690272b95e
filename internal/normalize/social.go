package normalize

import (
	"strings"

	"github.com/Amund211/lana/internal/domain"
)

const SocialReply = "Hey dear! 👋 I'm Lana — what would you like to learn today?"

var socialGreetings = map[string]struct{}{
	"hello":          {},
	"hi":             {},
	"hey":            {},
	"thank":          {},
	"thanks":         {},
	"good morning":   {},
	"good afternoon": {},
	"good evening":   {},
	"how are you":    {},
}

// IsSocialGreeting reports whether topic is small talk rather than something to learn about
func IsSocialGreeting(topic string) bool {
	normalized := strings.ToLower(strings.Join(strings.Fields(topic), " "))
	normalized = strings.TrimRight(normalized, "!?.")
	_, ok := socialGreetings[normalized]
	return ok
}

func SocialLesson() domain.Lesson {
	return domain.Lesson{
		Introduction:    SocialReply,
		Classifications: []domain.Classification{},
		Sections: []domain.Section{
			{Title: "Friendly Note", Content: SocialReply},
		},
		Diagram: "No diagram needed for a friendly chat.",
		Quiz: []domain.QuizItem{
			{
				Question: "What would you like to learn next?",
				Options:  []string{"A) Science", "B) History", "C) Anything"},
				Answer:   "C) Anything",
			},
		},
		Source: domain.LessonSourceSocial,
	}
}
