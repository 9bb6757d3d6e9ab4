package naming

import (
	"strconv"
	"strings"
)

// Default words used when the album or scan name is empty
const (
	DefaultAlbum = "album"
	DefaultScan  = "scan"
)

// NameContext carries the values substituted into a pattern for one output file
type NameContext struct {
	Album string `json:"album"`
	Scan  string `json:"scan"`
	Page  int    `json:"page"`
	N     int    `json:"n"`
	Photo int    `json:"photo"`
}

// Generate renders pattern with the values in ctx.
//
// Supported placeholders:
//   - {album} album name, "album" when empty
//   - {scan}  original filename without extension, "scan" when empty
//   - {page}  page number, zero-padded to 2 digits
//   - {n}     global sequential number, zero-padded to 4 digits
//   - {photo} photo number within the page, zero-padded to 2 digits
//
// The pattern is scanned once, so substituted text is never expanded again.
// Anything that is not a recognized placeholder is copied unchanged, which
// means Generate never fails, even for patterns that did not validate.
func Generate(pattern string, ctx NameContext) string {
	var out strings.Builder
	out.Grow(len(pattern) + 16)
	for len(pattern) > 0 {
		start := strings.IndexByte(pattern, '{')
		if start == -1 {
			out.WriteString(pattern)
			break
		}
		out.WriteString(pattern[:start])
		pattern = pattern[start:]

		name, n := matchToken(pattern)
		if n == 0 {
			out.WriteByte('{')
			pattern = pattern[1:]
			continue
		}
		out.WriteString(ctx.value(name))
		pattern = pattern[n:]
	}
	return out.String()
}

// matchToken reports the recognized placeholder at the start of s and its
// length including braces, or a zero length when there is none.
func matchToken(s string) (string, int) {
	if len(s) < 3 || s[0] != '{' {
		return "", 0
	}
	end := strings.IndexByte(s, '}')
	if end == -1 {
		return "", 0
	}
	name := s[1:end]
	if !isToken(name) {
		return "", 0
	}
	return name, end + 1
}

func (c NameContext) value(name string) string {
	switch name {
	case tokenAlbum:
		if c.Album == "" {
			return DefaultAlbum
		}
		return c.Album
	case tokenScan:
		if c.Scan == "" {
			return DefaultScan
		}
		return c.Scan
	case tokenPage:
		return pad(c.Page, 2)
	case tokenN:
		return pad(c.N, 4)
	case tokenPhoto:
		return pad(c.Photo, 2)
	}
	return ""
}

// pad left-pads the decimal form of v with zeros up to width. Longer values
// are returned whole.
func pad(v, width int) string {
	s := strconv.Itoa(v)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
