package domain

type LessonSource string

const (
	LessonSourceGenerated   LessonSource = "generated"
	LessonSourcePrecomputed LessonSource = "precomputed"
	LessonSourceFallback    LessonSource = "fallback"
	LessonSourceSocial      LessonSource = "social"
)

type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type Classification struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type QuizItem struct {
	Question string   `json:"q"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// Lesson is the structured content returned for a topic.
//
// Source is not part of the response body, but is persisted alongside cached
// lessons so that fallbacks can be told apart from generated content.
type Lesson struct {
	Introduction    string           `json:"introduction,omitempty"`
	Classifications []Classification `json:"classifications"`
	Sections        []Section        `json:"sections"`
	Diagram         string           `json:"diagram"`
	Quiz            []QuizItem       `json:"quiz"`

	Source LessonSource `json:"source,omitempty"`
}

func (l Lesson) IsFallback() bool {
	return l.Source == LessonSourceFallback
}
