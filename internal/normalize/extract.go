package normalize

import (
	"strings"
)

// extractObject narrows raw generator output down to the JSON object it most
// likely contains.
//
// A fenced ```json block wins over a bare ``` block. If the result still is not
// delimited by braces, everything from the first { to the last } is taken.
func extractObject(raw string) string {
	content := strings.TrimSpace(raw)

	if block, ok := fencedBlock(content, "```json"); ok {
		content = block
	} else if block, ok := fencedBlock(content, "```"); ok {
		content = block
	}

	if strings.HasPrefix(content, "{") && strings.HasSuffix(content, "}") {
		return content
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return content
	}
	return content[start : end+1]
}

func fencedBlock(content, fence string) (string, bool) {
	start := strings.Index(content, fence)
	if start == -1 {
		return "", false
	}
	start += len(fence)

	end := strings.Index(content[start:], "```")
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(content[start : start+end]), true
}

// repair fixes the mistakes language models commonly make when emitting JSON
//
// Control characters inside strings are escaped (newline, carriage return, tab)
// or dropped, control characters outside strings are dropped unless they are
// whitespace, and trailing commas before a closing brace or bracket are removed.
func repair(content string) string {
	var b strings.Builder
	b.Grow(len(content))

	inString := false
	escaped := false
	// Index in b of a comma that may turn out to be trailing
	pendingComma := -1

	for _, r := range content {
		if inString {
			switch {
			case escaped:
				escaped = false
				b.WriteRune(r)
			case r == '\\':
				escaped = true
				b.WriteRune(r)
			case r == '"':
				inString = false
				b.WriteRune(r)
			case r == '\n':
				b.WriteString(`\n`)
			case r == '\r':
				b.WriteString(`\r`)
			case r == '\t':
				b.WriteString(`\t`)
			case isControl(r):
			default:
				b.WriteRune(r)
			}
			continue
		}

		switch {
		case r == ' ' || r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(r)
			continue
		case isControl(r):
			continue
		case r == '}' || r == ']':
			if pendingComma != -1 {
				trimmed := b.String()
				b.Reset()
				b.WriteString(trimmed[:pendingComma])
				b.WriteString(trimmed[pendingComma+1:])
			}
		}

		pendingComma = -1
		switch r {
		case '"':
			inString = true
		case ',':
			pendingComma = b.Len()
		}
		b.WriteRune(r)
	}

	return b.String()
}

func isControl(r rune) bool {
	return r < 0x20 || (r >= 0x7f && r <= 0x9f)
}
