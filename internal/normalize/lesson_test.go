package normalize_test

import (
	"testing"

	"github.com/Amund211/lana/internal/domain"
	"github.com/Amund211/lana/internal/normalize"
	"github.com/stretchr/testify/require"
)

func TestLesson(t *testing.T) {
	t.Parallel()

	t.Run("fenced block with a trailing comma", func(t *testing.T) {
		t.Parallel()

		raw := "```json\n{\"sections\":[{\"title\":\"A\",\"content\":\"Some content here\"}],}\n```"
		lesson, err := normalize.Lesson(raw, "anything")
		require.NoError(t, err)
		require.Equal(t, []domain.Section{{Title: "A", Content: "Some content here"}}, lesson.Sections)
		require.Equal(t, domain.LessonSourceGenerated, lesson.Source)
		require.NotNil(t, lesson.Quiz)
		require.NotNil(t, lesson.Classifications)
	})

	t.Run("full lesson in the generated shape", func(t *testing.T) {
		t.Parallel()

		raw := `Here is your lesson:
{
  "introduction": {"definition": "Photosynthesis turns light into food.", "relevance": "It feeds almost all life."},
  "sections": [
    {"title": "Light", "content": "• Plants absorb sunlight\n• Chlorophyll is green"},
    {"title": "Water", "content": "• Roots absorb water"},
    {"title": "Sugar", "content": "• Glucose stores energy"}
  ],
  "classifications": [{"type": "C3", "description": "Most common"}, {"type": "C4"}],
  "quiz_questions": [
    {"question": "What do plants absorb?", "options": ["A) Sound", "B) Light"], "correct_answer": "B) Light"},
    {"prompt": "Where does it happen?", "options": [{"text": "A) Chloroplast"}, {"label": "B) Nucleus"}], "correct": 0}
  ],
  "diagram_description": "Sun -> leaf -> sugar"
}
Enjoy!`
		lesson, err := normalize.Lesson(raw, "Photosynthesis")
		require.NoError(t, err)
		require.Equal(t, domain.Lesson{
			Introduction:    "Photosynthesis turns light into food.\nIt feeds almost all life.",
			Classifications: []domain.Classification{{Type: "C3", Description: "Most common"}},
			Sections: []domain.Section{
				{Title: "Light", Content: "• Plants absorb sunlight\n• Chlorophyll is green"},
				{Title: "Water", Content: "• Roots absorb water"},
				{Title: "Sugar", Content: "• Glucose stores energy"},
			},
			Diagram: "Sun -> leaf -> sugar",
			Quiz: []domain.QuizItem{
				{Question: "What do plants absorb?", Options: []string{"A) Sound", "B) Light"}, Answer: "B) Light"},
				{Question: "Where does it happen?", Options: []string{"A) Chloroplast", "B) Nucleus"}, Answer: "A) Chloroplast"},
			},
			Source: domain.LessonSourceGenerated,
		}, lesson)
	})

	t.Run("literal control characters inside strings", func(t *testing.T) {
		t.Parallel()

		raw := "{\"introduction\": \"Line one\nLine two\", \"sections\": [{\"title\": \"T\",\t\"content\": \"First\tpoint\nSecond point\x01\"}], \"quiz\": [{\"q\": \"Why?\", \"options\": [\"A\", \"B\",], \"answer\": \"A\"}]}"
		lesson, err := normalize.Lesson(raw, "topic")
		require.NoError(t, err)
		require.Equal(t, "Line one\nLine two", lesson.Introduction)
		require.Equal(t, []domain.Section{{Title: "T", Content: "First\tpoint\nSecond point"}}, lesson.Sections)
		require.Equal(t, []domain.QuizItem{{Question: "Why?", Options: []string{"A", "B"}, Answer: "A"}}, lesson.Quiz)
	})

	t.Run("commas inside strings are kept", func(t *testing.T) {
		t.Parallel()

		raw := `{"sections": [{"title": "Lists", "content": "apples, pears, }plums,]"},],}`
		lesson, err := normalize.Lesson(raw, "topic")
		require.NoError(t, err)
		require.Equal(t, "apples, pears, }plums,]", lesson.Sections[0].Content)
	})

	t.Run("section content as a list", func(t *testing.T) {
		t.Parallel()

		raw := `{"sections": [{"heading": "Points", "body": ["first point", "second point"]}], "questions": []}`
		lesson, err := normalize.Lesson(raw, "topic")
		require.NoError(t, err)
		require.Equal(t, []domain.Section{{Title: "Points", Content: "first point\nsecond point"}}, lesson.Sections)
	})

	for _, c := range []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "not json at all"},
		{name: "empty", raw: "   "},
		{name: "array", raw: `[{"title": "A", "content": "Some content here"}]`},
		{name: "no sections", raw: `{"introduction": "Hello there"}`},
		{name: "only short sections", raw: `{"sections": [{"title": "A", "content": "too short"}]}`},
		{name: "sections without titles", raw: `{"sections": [{"content": "Some content here"}]}`},
		{name: "unrepairable", raw: `{"sections": [{"title": "A" "content": "Some content here"}]}`},
	} {
		t.Run("malformed: "+c.name, func(t *testing.T) {
			t.Parallel()

			_, err := normalize.Lesson(c.raw, "topic")
			require.ErrorIs(t, err, domain.ErrMalformedContent)
		})
	}
}

func TestLessonOrFallback(t *testing.T) {
	t.Parallel()

	t.Run("fallback references the topic", func(t *testing.T) {
		t.Parallel()

		lesson := normalize.LessonOrFallback("not json at all", "  Black holes ")
		require.Equal(t, normalize.FallbackLesson("Black holes"), lesson)
		require.True(t, lesson.IsFallback())
		require.Equal(t, "Learn about Black holes", lesson.Introduction)
		require.Equal(t, []domain.Section{{Title: "Introduction to Black holes", Content: "This covers the basics of Black holes."}}, lesson.Sections)
		require.Equal(t, "What is Black holes?", lesson.Quiz[0].Question)
		require.Equal(t, "C) Both", lesson.Quiz[0].Answer)
	})

	t.Run("valid content is kept", func(t *testing.T) {
		t.Parallel()

		lesson := normalize.LessonOrFallback(`{"sections":[{"title":"A","content":"Some content here"}]}`, "topic")
		require.False(t, lesson.IsFallback())
		require.Equal(t, "A", lesson.Sections[0].Title)
	})
}

func TestSocial(t *testing.T) {
	t.Parallel()

	for _, topic := range []string{"hello", "Hi", " hey ", "Thanks!", "good   morning", "How are you?"} {
		require.True(t, normalize.IsSocialGreeting(topic), topic)
	}
	for _, topic := range []string{"hello world", "history", "thanksgiving", ""} {
		require.False(t, normalize.IsSocialGreeting(topic), topic)
	}

	lesson := normalize.SocialLesson()
	require.Equal(t, domain.LessonSourceSocial, lesson.Source)
	require.Equal(t, normalize.SocialReply, lesson.Introduction)
	require.Equal(t, "Friendly Note", lesson.Sections[0].Title)
}
