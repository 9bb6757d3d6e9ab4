package naming

import (
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultPatternText is the pattern a new session starts with
const DefaultPatternText = "{album}_{n}"

// MaxStartNumber is the largest start number kept; larger inputs clamp to it
const MaxStartNumber = 1<<53 - 1

// PreviewExt is appended to previews and exported file names
const PreviewExt = ".jpg"

// Pattern is the user-editable naming configuration
type Pattern struct {
	AlbumName   string `json:"album_name"`
	StartNumber int    `json:"start_number"`
	Pattern     string `json:"pattern"`
}

// Sample describes the output used to render a live preview
type Sample struct {
	Filename    string `json:"filename"`
	Page        int    `json:"page"`
	PhotoIndex  int    `json:"photo_index"`  // 0-based
	GlobalIndex int    `json:"global_index"` // 0-based
}

// DefaultSample is the preview sample used when no scan is loaded
var DefaultSample = Sample{Filename: "scan_001.jpg", Page: 1}

// DefaultPattern returns the naming configuration for a new session
func DefaultPattern() Pattern {
	return Pattern{StartNumber: 1, Pattern: DefaultPatternText}
}

// Normalize returns p with its start number coerced into [1, MaxStartNumber]
func (p Pattern) Normalize() Pattern {
	switch {
	case p.StartNumber < 1:
		p.StartNumber = 1
	case p.StartNumber > MaxStartNumber:
		p.StartNumber = MaxStartNumber
	}
	return p
}

// WithStartNumber returns p with the given start number, snapping values
// below 1 to 1
func (p Pattern) WithStartNumber(n int) Pattern {
	p.StartNumber = n
	return p.Normalize()
}

// WithPlaceholder appends key to the pattern text
func (p Pattern) WithPlaceholder(key string) Pattern {
	p.Pattern += key
	return p
}

// Validate validates the pattern text
func (p Pattern) Validate() Result {
	return Validate(p.Pattern)
}

// Context builds the render context for one output. photoIndex and
// globalIndex are 0-based; page is 1-based.
func (p Pattern) Context(filename string, page, globalIndex, photoIndex int) NameContext {
	album := p.AlbumName
	if album == "" {
		album = DefaultAlbum
	}
	return NameContext{
		Album: album,
		Scan:  ScanName(filename),
		Page:  page,
		N:     p.Normalize().StartNumber + globalIndex,
		Photo: photoIndex + 1,
	}
}

// Name renders the name for one output
func (p Pattern) Name(filename string, page, globalIndex, photoIndex int) string {
	return Generate(p.Pattern, p.Context(filename, page, globalIndex, photoIndex))
}

// Preview renders the sample output name with the preview extension, or ""
// when the pattern is invalid
func (p Pattern) Preview(s Sample) string {
	if !p.Validate().Valid {
		return ""
	}
	return p.Name(s.Filename, s.Page, s.GlobalIndex, s.PhotoIndex) + PreviewExt
}

// ScanName returns filename without directory and last extension, in NFC
// form. A trailing lone dot is not treated as an extension.
func ScanName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	if ext := path.Ext(base); len(ext) > 1 {
		base = strings.TrimSuffix(base, ext)
	}
	return norm.NFC.String(base)
}

// ParseStartNumber reads a start number the way a numeric text field does:
// leading whitespace and digits are honored, anything unparsable or below 1
// becomes 1 and anything above MaxStartNumber becomes MaxStartNumber
func ParseStartNumber(s string) int {
	s = strings.TrimLeft(s, " \t\n\r")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n, digits := 0, 0
	for _, c := range []byte(s) {
		if c < '0' || c > '9' {
			break
		}
		digits++
		if n > MaxStartNumber {
			continue
		}
		n = n*10 + int(c-'0')
	}
	if digits == 0 || neg || n < 1 {
		return 1
	}
	return min(n, MaxStartNumber)
}
