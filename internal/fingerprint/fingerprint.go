// Package fingerprint derives stable cache and coordination keys from request parameters.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

const ModeDefault = "default"

// Keys are truncated to 128 bits
const digestBytes = 16

// NormalizeTopic lower-cases the topic, trims it and collapses inner whitespace.
func NormalizeTopic(topic string) string {
	return strings.Join(strings.Fields(strings.ToLower(topic)), " ")
}

// Lesson returns the fingerprint for a lesson request.
//
// Equivalent topics (case and surrounding whitespace) map to the same key.
func Lesson(topic string, age *int, mode string) string {
	ageStr := "-"
	if age != nil {
		ageStr = strconv.Itoa(*age)
	}
	if mode == "" {
		mode = ModeDefault
	}
	return "lesson:" + digest(NormalizeTopic(topic), ageStr, strings.ToLower(strings.TrimSpace(mode)))
}

// Popular returns the key a popular topic is precomputed under.
//
// Precomputed lessons are not tailored to an age or mode.
func Popular(topic string) string {
	return "popular:" + digest(NormalizeTopic(topic))
}

// Text returns a fingerprint for free-form inputs, such as a math question or a text to synthesize.
func Text(kind string, parts ...string) string {
	return kind + ":" + digest(parts...)
}

func digest(parts ...string) string {
	h := sha256.New()
	for i, part := range parts {
		if i > 0 {
			// Unit separator, can't appear in normalized topics
			h.Write([]byte{0x1f})
		}
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil)[:digestBytes])
}
