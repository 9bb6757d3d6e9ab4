package naming

// Placeholder is a recognized token that can appear in a naming pattern
type Placeholder struct {
	Key         string `json:"key"`
	Description string `json:"description"`
}

// Token names without braces. The order here is display order only.
const (
	tokenAlbum = "album"
	tokenScan  = "scan"
	tokenPage  = "page"
	tokenN     = "n"
	tokenPhoto = "photo"
)

var placeholders = []Placeholder{
	{Key: "{" + tokenAlbum + "}", Description: "Album name"},
	{Key: "{" + tokenScan + "}", Description: "Original filename"},
	{Key: "{" + tokenPage + "}", Description: "Page number (PDF)"},
	{Key: "{" + tokenN + "}", Description: "Global number"},
	{Key: "{" + tokenPhoto + "}", Description: "Photo in scan"},
}

// Placeholders returns the ordered catalogue of insertable placeholders.
// The returned slice is a copy and may be modified by the caller.
func Placeholders() []Placeholder {
	out := make([]Placeholder, len(placeholders))
	copy(out, placeholders)
	return out
}

// isToken reports whether name (without braces) is one of the recognized placeholders
func isToken(name string) bool {
	switch name {
	case tokenAlbum, tokenScan, tokenPage, tokenN, tokenPhoto:
		return true
	}
	return false
}

// IsPlaceholder reports whether key (with braces) is a recognized placeholder
func IsPlaceholder(key string) bool {
	if len(key) < 3 || key[0] != '{' || key[len(key)-1] != '}' {
		return false
	}
	return isToken(key[1 : len(key)-1])
}
