// Package validation sanitizes and validates client input.
package validation

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Amund211/lana/internal/domain"
)

const (
	MinTopicLength        = 2
	MaxTopicLength        = 300
	MinAge                = 5
	MaxAge                = 100
	MaxMathQuestionLength = 1000
	MaxTTSTextLength      = 5000
	MaxVoiceLength        = 50
	MaxSessionIDLength    = 200
	MaxChatContentLength  = 10000
)

var (
	strippedCharacters = regexp.MustCompile(`[<>"'\x00-\x08\x0b\x0c\x0e-\x1f\x{7f}-\x{9f}]`)

	dangerousPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)on\w+\s*=`),
		regexp.MustCompile(`(?i)data:text/html`),
		regexp.MustCompile(`(?i)vbscript:`),
	}

	mathQuestionPattern = regexp.MustCompile(`^[a-zA-Z0-9\s+\-*/=().,^{}\[\]\\]+$`)
	voicePattern        = regexp.MustCompile(`^[A-Za-z]+$`)
	sessionIDPattern    = regexp.MustCompile(`^[A-Za-z0-9_\-:]+$`)
)

// SanitizeText escapes html, strips characters that have no business in plain
// text and collapses whitespace
func SanitizeText(text string) string {
	if text == "" {
		return ""
	}
	text = html.EscapeString(text)
	text = strippedCharacters.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

func Topic(topic string) (string, error) {
	if strings.TrimSpace(topic) == "" {
		return "", fieldError("topic", "Topic cannot be empty")
	}

	topic = SanitizeText(topic)
	length := utf8.RuneCountInString(topic)
	if length < MinTopicLength {
		return "", fieldError("topic", fmt.Sprintf("Topic must be at least %d characters long", MinTopicLength))
	}
	if length > MaxTopicLength {
		return "", fieldError("topic", fmt.Sprintf("Topic must be at most %d characters long", MaxTopicLength))
	}

	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(topic) {
			return "", fieldError("topic", "Topic contains potentially dangerous content")
		}
	}

	return topic, nil
}

func Age(age *int) error {
	if age == nil {
		return nil
	}
	if *age < MinAge || *age > MaxAge {
		return fieldError("age", fmt.Sprintf("Age must be between %d and %d", MinAge, MaxAge))
	}
	return nil
}

func MathQuestion(question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fieldError("question", "Math question cannot be empty")
	}

	question = SanitizeText(question)
	if utf8.RuneCountInString(question) > MaxMathQuestionLength {
		return "", fieldError("question", fmt.Sprintf("Math question must be at most %d characters long", MaxMathQuestionLength))
	}
	if !mathQuestionPattern.MatchString(question) {
		return "", fieldError("question", "Math question contains invalid characters")
	}

	return question, nil
}

// Runs of a repeated character longer than this are collapsed
const maxRepetition = 10

func TTSText(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fieldError("text", "TTS text cannot be empty")
	}

	text = SanitizeText(text)
	if utf8.RuneCountInString(text) > MaxTTSTextLength {
		return "", fieldError("text", fmt.Sprintf("TTS text must be at most %d characters long", MaxTTSTextLength))
	}

	return collapseRepetition(text), nil
}

// collapseRepetition shortens runs of more than maxRepetition identical characters to three
func collapseRepetition(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	runes := []rune(text)
	for i := 0; i < len(runes); {
		j := i
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		run := j - i
		if run > maxRepetition {
			run = 3
		}
		for range run {
			b.WriteRune(runes[i])
		}
		i = j
	}

	return b.String()
}

// Voice validates an optional prebuilt voice name
func Voice(voice string) (string, error) {
	voice = strings.TrimSpace(voice)
	if voice == "" {
		return "", nil
	}
	if len(voice) > MaxVoiceLength || !voicePattern.MatchString(voice) {
		return "", fieldError("voice", "Invalid voice name")
	}
	return voice, nil
}

func SessionID(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", fieldError("sid", "Session ID cannot be empty")
	}
	if len(sessionID) > MaxSessionIDLength || !sessionIDPattern.MatchString(sessionID) {
		return "", fieldError("sid", "Invalid session ID format")
	}
	return sessionID, nil
}

func ChatContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fieldError("content", "Content cannot be empty")
	}
	if utf8.RuneCountInString(content) > MaxChatContentLength {
		return "", fieldError("content", fmt.Sprintf("Content must be at most %d characters long", MaxChatContentLength))
	}
	return content, nil
}

func ChatRole(role string) (domain.ChatRole, error) {
	chatRole := domain.ChatRole(strings.ToLower(strings.TrimSpace(role)))
	if !chatRole.IsValid() {
		return "", fieldError("role", "Role must be one of user, assistant")
	}
	return chatRole, nil
}
