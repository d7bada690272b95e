package ports

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Amund211/lana/internal/app"
	"github.com/Amund211/lana/internal/domain"
	"github.com/Amund211/lana/internal/logging"
	"github.com/Amund211/lana/internal/reporting"
	"github.com/Amund211/lana/internal/validation"
)

// Reports where a lesson was served from: cache, popular, generated, joined, social or fallback
const LessonOriginHeader = "X-Lesson-Origin"

type lessonRequest struct {
	Topic string `json:"topic"`
	Age   *int   `json:"age"`
}

type classificationResponse struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type sectionResponse struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type quizItemResponse struct {
	Question string   `json:"q"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

type lessonResponse struct {
	Introduction    string                   `json:"introduction,omitempty"`
	Classifications []classificationResponse `json:"classifications"`
	Sections        []sectionResponse        `json:"sections"`
	Diagram         string                   `json:"diagram"`
	Quiz            []quizItemResponse       `json:"quiz"`
}

func lessonToResponse(lesson domain.Lesson) lessonResponse {
	response := lessonResponse{
		Introduction:    lesson.Introduction,
		Classifications: make([]classificationResponse, 0, len(lesson.Classifications)),
		Sections:        make([]sectionResponse, 0, len(lesson.Sections)),
		Diagram:         lesson.Diagram,
		Quiz:            make([]quizItemResponse, 0, len(lesson.Quiz)),
	}
	for _, classification := range lesson.Classifications {
		response.Classifications = append(response.Classifications, classificationResponse(classification))
	}
	for _, section := range lesson.Sections {
		response.Sections = append(response.Sections, sectionResponse(section))
	}
	for _, item := range lesson.Quiz {
		options := item.Options
		if options == nil {
			options = []string{}
		}
		response.Quiz = append(response.Quiz, quizItemResponse{
			Question: item.Question,
			Options:  options,
			Answer:   item.Answer,
		})
	}
	return response
}

// parseLessonRequest decodes and validates a lesson request, writing the error response on failure
func parseLessonRequest(w http.ResponseWriter, r *http.Request) (string, *int, bool) {
	var request lessonRequest
	if err := decodeBody(w, r, &request); err != nil {
		writeInvalidBody(w, r, err)
		return "", nil, false
	}

	topic, topicErr := validation.Topic(request.Topic)
	if err := validation.Join(topicErr, validation.Age(request.Age)); err != nil {
		writeValidationError(w, r, err)
		return "", nil, false
	}

	return topic, request.Age, true
}

func addLessonMeta(r *http.Request, topic string, age *int) *http.Request {
	ageStr := "<missing>"
	if age != nil {
		ageStr = fmt.Sprint(*age)
	}

	ctx := r.Context()
	ctx = logging.AddMetaToContext(ctx,
		slog.String("topic", topic),
		slog.String("age", ageStr),
	)
	ctx = reporting.AddLessonRequestToContext(ctx, topic, ageStr)
	return r.WithContext(ctx)
}

func MakeStructuredLessonHandler(
	getLesson app.GetLesson,
	middleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	handler := func(w http.ResponseWriter, r *http.Request) {
		topic, age, ok := parseLessonRequest(w, r)
		if !ok {
			return
		}
		r = addLessonMeta(r, topic, age)
		ctx := r.Context()

		result := getLesson(ctx, topic, age)
		logging.FromContext(ctx).InfoContext(ctx, "Serving lesson", "origin", string(result.Origin))

		w.Header().Set(LessonOriginHeader, string(result.Origin))
		writeJSON(w, r, http.StatusOK, lessonToResponse(result.Lesson))
	}

	return middleware(handler)
}

type streamEvent struct {
	Type    string          `json:"type"`
	Lesson  *lessonResponse `json:"lesson,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Interval between comment lines keeping idle proxies from closing the stream
const streamKeepAliveInterval = 15 * time.Second

func MakeStructuredLessonStreamHandler(
	getLesson app.GetLesson,
	middleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	handler := func(w http.ResponseWriter, r *http.Request) {
		topic, age, ok := parseLessonRequest(w, r)
		if !ok {
			return
		}
		r = addLessonMeta(r, topic, age)
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		controller := http.NewResponseController(w)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		if err := controller.Flush(); err != nil {
			logger.WarnContext(ctx, "Response writer does not support flushing", "error", err.Error())
		}

		results := make(chan app.LessonResult, 1)
		go func() {
			results <- getLesson(ctx, topic, age)
		}()

		ticker := time.NewTicker(streamKeepAliveInterval)
		defer ticker.Stop()

		var result app.LessonResult
	wait:
		for {
			select {
			case result = <-results:
				break wait
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					logger.InfoContext(ctx, "Client went away while waiting for lesson", "error", err.Error())
					return
				}
				_ = controller.Flush()
			case <-ctx.Done():
				logger.InfoContext(ctx, "Client went away while waiting for lesson")
				return
			}
		}

		logger.InfoContext(ctx, "Streaming lesson", "origin", string(result.Origin))

		response := lessonToResponse(result.Lesson)
		data, err := json.Marshal(streamEvent{Type: "done", Lesson: &response})
		if err != nil {
			err = fmt.Errorf("failed to marshal lesson event: %w", err)
			reporting.Report(ctx, err)
			data, _ = json.Marshal(streamEvent{Type: "error", Message: "Failed to encode lesson"})
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			logger.InfoContext(ctx, "Failed to write lesson event", "error", err.Error())
			return
		}
		_ = controller.Flush()
	}

	return middleware(handler)
}

type socialResponse struct {
	Reply string `json:"reply"`
}

func MakeSocialHandler(
	reply string,
	middleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	handler := func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, socialResponse{Reply: reply})
	}

	return middleware(handler)
}
