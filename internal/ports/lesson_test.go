package ports_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Amund211/lana/internal/app"
	"github.com/Amund211/lana/internal/domain"
	"github.com/Amund211/lana/internal/ports"
	"github.com/stretchr/testify/require"
)

var testLesson = domain.Lesson{
	Introduction: "Plants make food from light.",
	Classifications: []domain.Classification{
		{Type: "Process", Description: "Biochemical"},
	},
	Sections: []domain.Section{
		{Title: "Light reactions", Content: "Happen in the thylakoids."},
	},
	Diagram: "",
	Quiz: []domain.QuizItem{
		{Question: "Where do light reactions happen?", Options: []string{"A) Thylakoids", "B) Stroma"}, Answer: "A) Thylakoids"},
	},
	Source: domain.LessonSourceGenerated,
}

const testLessonJSON = `{
	"introduction": "Plants make food from light.",
	"classifications": [{"type": "Process", "description": "Biochemical"}],
	"sections": [{"title": "Light reactions", "content": "Happen in the thylakoids."}],
	"diagram": "",
	"quiz": [{"q": "Where do light reactions happen?", "options": ["A) Thylakoids", "B) Stroma"], "answer": "A) Thylakoids"}]
}`

func makeGetLesson(t *testing.T, expectedTopic string, expectedAge *int, result app.LessonResult) (app.GetLesson, *atomic.Int32) {
	calls := &atomic.Int32{}
	return func(ctx context.Context, topic string, age *int) app.LessonResult {
		t.Helper()
		require.Equal(t, expectedTopic, topic)
		require.Equal(t, expectedAge, age)
		calls.Add(1)
		return result
	}, calls
}

func TestMakeStructuredLessonHandler(t *testing.T) {
	t.Parallel()

	t.Run("serves the lesson", func(t *testing.T) {
		t.Parallel()

		age := 12
		getLesson, calls := makeGetLesson(t, "Photosynthesis", &age, app.LessonResult{Lesson: testLesson, Origin: app.LessonOriginGenerated})
		handler := ports.MakeStructuredLessonHandler(getLesson, noopMiddleware)

		req := httptest.NewRequest(http.MethodPost, "/api/structured-lesson", strings.NewReader(`{"topic": "  Photosynthesis ", "age": 12}`))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, testLessonJSON, w.Body.String())
		require.Equal(t, "application/json", w.Header().Get("Content-Type"))
		require.Equal(t, "generated", w.Header().Get(ports.LessonOriginHeader))
		require.EqualValues(t, 1, calls.Load())
	})

	t.Run("empty collections are arrays", func(t *testing.T) {
		t.Parallel()

		getLesson, _ := makeGetLesson(t, "Gravity", nil, app.LessonResult{Lesson: domain.Lesson{Sections: []domain.Section{{Title: "a", Content: "b"}}}, Origin: app.LessonOriginCache})
		handler := ports.MakeStructuredLessonHandler(getLesson, noopMiddleware)

		req := httptest.NewRequest(http.MethodPost, "/api/structured-lesson", strings.NewReader(`{"topic": "Gravity"}`))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"classifications": [], "sections": [{"title": "a", "content": "b"}], "diagram": "", "quiz": []}`, w.Body.String())
		require.Equal(t, "cache", w.Header().Get(ports.LessonOriginHeader))
	})

	for name, tc := range map[string]struct {
		body         string
		expectedJSON string
	}{
		"invalid json": {
			body:         `{"topic": `,
			expectedJSON: `{"error": "Validation Error", "message": "Request body must be a valid JSON object", "details": [{"field": "body", "message": "Invalid JSON"}]}`,
		},
		"trailing data": {
			body:         `{"topic": "Gravity"} {}`,
			expectedJSON: `{"error": "Validation Error", "message": "Request body must be a valid JSON object", "details": [{"field": "body", "message": "Invalid JSON"}]}`,
		},
		"missing topic": {
			body:         `{}`,
			expectedJSON: `{"error": "Validation Error", "message": "Invalid input data", "details": [{"field": "topic", "message": "Topic cannot be empty"}]}`,
		},
		"invalid topic and age": {
			body:         `{"topic": "", "age": 3}`,
			expectedJSON: `{"error": "Validation Error", "message": "Invalid input data", "details": [{"field": "topic", "message": "Topic cannot be empty"}, {"field": "age", "message": "Age must be between 5 and 100"}]}`,
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			getLesson := func(ctx context.Context, topic string, age *int) app.LessonResult {
				t.Helper()
				require.FailNow(t, "getLesson should not be called")
				return app.LessonResult{}
			}
			handler := ports.MakeStructuredLessonHandler(getLesson, noopMiddleware)

			req := httptest.NewRequest(http.MethodPost, "/api/structured-lesson", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			require.Equal(t, http.StatusUnprocessableEntity, w.Code)
			require.JSONEq(t, tc.expectedJSON, w.Body.String())
		})
	}
}

func TestMakeStructuredLessonStreamHandler(t *testing.T) {
	t.Parallel()

	t.Run("streams a single done event", func(t *testing.T) {
		t.Parallel()

		getLesson, calls := makeGetLesson(t, "Photosynthesis", nil, app.LessonResult{Lesson: testLesson, Origin: app.LessonOriginPopular})
		handler := ports.MakeStructuredLessonStreamHandler(getLesson, noopMiddleware)

		req := httptest.NewRequest(http.MethodPost, "/api/structured-lesson/stream", strings.NewReader(`{"topic": "Photosynthesis"}`))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
		require.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
		require.True(t, w.Flushed)
		require.EqualValues(t, 1, calls.Load())

		body := w.Body.String()
		require.True(t, strings.HasPrefix(body, "data: "), body)
		require.True(t, strings.HasSuffix(body, "\n\n"), body)
		require.Equal(t, 1, strings.Count(body, "data: "))

		payload := strings.TrimSuffix(strings.TrimPrefix(body, "data: "), "\n\n")
		require.JSONEq(t, `{"type": "done", "lesson": `+testLessonJSON+`}`, payload)
	})

	t.Run("validation happens before streaming", func(t *testing.T) {
		t.Parallel()

		getLesson := func(ctx context.Context, topic string, age *int) app.LessonResult {
			t.Helper()
			require.FailNow(t, "getLesson should not be called")
			return app.LessonResult{}
		}
		handler := ports.MakeStructuredLessonStreamHandler(getLesson, noopMiddleware)

		req := httptest.NewRequest(http.MethodPost, "/api/structured-lesson/stream", strings.NewReader(`{"topic": "javascript:alert(1)"}`))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	})

	t.Run("client going away stops the stream", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		defer close(release)
		getLesson := func(ctx context.Context, topic string, age *int) app.LessonResult {
			<-release
			return app.LessonResult{Lesson: testLesson, Origin: app.LessonOriginGenerated}
		}
		handler := ports.MakeStructuredLessonStreamHandler(getLesson, noopMiddleware)

		ctx, cancel := context.WithCancel(t.Context())
		req := httptest.NewRequestWithContext(ctx, http.MethodPost, "/api/structured-lesson/stream", strings.NewReader(`{"topic": "Gravity"}`))
		w := httptest.NewRecorder()

		done := make(chan struct{})
		go func() {
			defer close(done)
			handler.ServeHTTP(w, req)
		}()
		cancel()
		<-done

		require.Equal(t, http.StatusOK, w.Code)
		require.NotContains(t, w.Body.String(), "data: ")
	})
}

func TestMakeSocialHandler(t *testing.T) {
	t.Parallel()

	handler := ports.MakeSocialHandler("Hello! What would you like to learn today?", noopMiddleware)

	req := httptest.NewRequest(http.MethodPost, "/api/social", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"reply": "Hello! What would you like to learn today?"}`, w.Body.String())
}
