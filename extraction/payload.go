package extraction

import (
	"encoding/json"
	"strings"
)

// Payload is the extraction service's raw structured guess: a mapping with
// keys "terms" and "gpa" when the service understood the transcript.
// It is never nil when returned from this package.
type Payload = map[string]any

// chatterPrefixes mark lines that models put around a JSON answer.
var chatterPrefixes = []string{"here is", "here's", "the json", "output:", "response:", "##"}

// DecodePayload turns a raw model response into a Payload. Code fences and
// leading chatter are stripped first. Invalid JSON gets one repair attempt
// (closing an unterminated string and any open brackets). A response that
// still does not parse, or parses to something other than an object, yields
// the empty Payload.
func DecodePayload(text string) Payload {
	s := StripFences(text)
	if s == "" {
		return Payload{}
	}
	if p, ok := decodeObject(s); ok {
		return p
	}
	if p, ok := decodeObject(Repair(s)); ok {
		return p
	}
	return Payload{}
}

// StripFences removes a Markdown code fence and any chatter before the
// first JSON object.
func StripFences(text string) string {
	s := strings.TrimSpace(text)

	if i := strings.Index(s, "```"); i >= 0 {
		body := s[i+3:]
		// Drop the language tag on the opening fence line.
		if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
			body = body[nl+1:]
		} else {
			body = strings.TrimPrefix(body, "json")
		}
		if j := strings.Index(body, "```"); j >= 0 {
			body = body[:j]
		}
		s = strings.TrimSpace(body)
	}

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		lower := strings.ToLower(strings.TrimSpace(line))
		if isChatter(lower) {
			continue
		}
		kept = append(kept, line)
	}
	s = strings.TrimSpace(strings.Join(kept, "\n"))

	if i := strings.IndexAny(s, "{["); i > 0 {
		s = s[i:]
	}
	return s
}

func isChatter(line string) bool {
	if line == "" {
		return false
	}
	for _, p := range chatterPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// Repair closes what a truncated JSON document left open: an unterminated
// string, a dangling key or comma, then every open object and array.
func Repair(s string) string {
	var (
		stack    []byte
		inString bool
		escaped  bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if n := len(stack); n > 0 && matches(stack[n-1], c) {
				stack = stack[:n-1]
			}
		}
	}

	var b strings.Builder
	b.WriteString(s)
	if inString {
		if escaped {
			b.WriteByte('\\')
		}
		b.WriteByte('"')
	}
	out := strings.TrimRight(b.String(), " \t\r\n")
	out = strings.TrimSuffix(out, ",")
	if strings.HasSuffix(out, ":") {
		out += "null"
	}

	b.Reset()
	b.WriteString(out)
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

func matches(open, close byte) bool {
	return (open == '{' && close == '}') || (open == '[' && close == ']')
}

// decodeObject reports ok=false only for a syntax error. Valid JSON that is
// not an object is treated as the empty Payload.
func decodeObject(s string) (Payload, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	m, ok := v.(map[string]any)
	if !ok || m == nil {
		return Payload{}, true
	}
	return m, true
}
