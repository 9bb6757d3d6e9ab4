package naming

import (
	"fmt"
	"strings"
)

// Validation messages. Callers display these verbatim.
const (
	msgEmpty         = "Pattern cannot be empty"
	msgNoPlaceholder = "Pattern must include at least one placeholder"
)

// unsafeChars holds the characters that cannot appear in an exported filename
var unsafeChars = [256]bool{
	'<': true, '>': true, ':': true, '"': true, '|': true,
	'?': true, '*': true, '\\': true, '/': true,
}

// Result is the outcome of validating a pattern or a name
type Result struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func invalid(format string, args ...any) Result {
	return Result{Valid: false, Error: fmt.Sprintf(format, args...)}
}

// Validate checks a naming pattern. Rules are applied in order and the first
// failing rule decides the reported error:
//
//  1. empty or whitespace-only pattern
//  2. filesystem-unsafe character (the leftmost one is reported)
//  3. brace token that is not a recognized placeholder (reported verbatim)
//  4. no recognized placeholder at all
func Validate(pattern string) Result {
	if strings.TrimSpace(pattern) == "" {
		return invalid(msgEmpty)
	}
	if c, ok := firstUnsafe(pattern); ok {
		return invalid("Invalid character: %c", c)
	}
	if tok, ok := firstUnknownToken(pattern); ok {
		return invalid("Unknown placeholder: %s", tok)
	}
	if !hasPlaceholder(pattern) {
		return invalid(msgNoPlaceholder)
	}
	return Result{Valid: true}
}

// ValidateName checks a single concrete output name, e.g. one typed by the
// user when renaming a result. Placeholders are not interpreted.
func ValidateName(name string) Result {
	if strings.TrimSpace(name) == "" {
		return invalid("Name cannot be empty")
	}
	if c, ok := firstUnsafe(name); ok {
		return invalid("Invalid character: %c", c)
	}
	return Result{Valid: true}
}

func firstUnsafe(s string) (byte, bool) {
	for i := 0; i < len(s); i++ {
		if unsafeChars[s[i]] {
			return s[i], true
		}
	}
	return 0, false
}

// firstUnknownToken scans for the leftmost "{content}" where content is
// non-empty, holds no closing brace and is not a recognized name. An opening
// brace with no closing brace after it ends the scan without a match.
func firstUnknownToken(s string) (string, bool) {
	i := 0
	for {
		open := strings.IndexByte(s[i:], '{')
		if open == -1 {
			return "", false
		}
		open += i
		end := strings.IndexByte(s[open+1:], '}')
		if end == -1 {
			return "", false
		}
		end += open + 1
		content := s[open+1 : end]
		switch {
		case content == "":
			i = open + 1
		case !isToken(content):
			return s[open : end+1], true
		default:
			i = end + 1
		}
	}
}

func hasPlaceholder(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		if _, n := matchToken(s[i:]); n > 0 {
			return true
		}
	}
	return false
}
