package generator

import (
	"errors"
	"strings"
)

// ExtractJSON returns the first balanced JSON object or array inside s.
// LLMs like to wrap their JSON in Markdown fences or chatter; this
// unwraps fences and then scans for a balanced {...} or [...] while
// ignoring braces inside strings.
func ExtractJSON(s string) (string, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "\uFEFF")

	if inner, ok := stripCodeFence(s); ok {
		s = strings.TrimSpace(inner)
	}

	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			if out, ok := balancedFrom(s, i); ok {
				return out, nil
			}
		}
	}
	return "", errors.New("no balanced JSON object/array found")
}

// stripCodeFence unwraps a leading ``` or ~~~ block, tolerating an
// optional language tag on the fence line.
func stripCodeFence(s string) (string, bool) {
	trim := strings.TrimLeft(s, "\n\r\t ")
	var fence string
	switch {
	case strings.HasPrefix(trim, "```"):
		fence = "```"
	case strings.HasPrefix(trim, "~~~"):
		fence = "~~~"
	default:
		return "", false
	}
	rest := trim[len(fence):]
	nl := strings.IndexByte(rest, '\n')
	if nl == -1 {
		return "", false
	}
	rest = rest[nl+1:]
	if end := strings.Index(rest, fence); end != -1 {
		return rest[:end], true
	}
	return "", false
}

func balancedFrom(s string, start int) (string, bool) {
	var (
		depth    []byte
		inString bool
		escaped  bool
	)
	depth = append(depth, s[start])

	for i := start + 1; i < len(s); i++ {
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
			depth = append(depth, c)
		case '}', ']':
			top := depth[len(depth)-1]
			if (top == '{' && c != '}') || (top == '[' && c != ']') {
				return "", false
			}
			depth = depth[:len(depth)-1]
			if len(depth) == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
