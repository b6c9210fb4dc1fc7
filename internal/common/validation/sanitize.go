package validation

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// entity-encoded markup can be nested; each pass peels one layer
const maxSanitizePasses = 4

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}

// SanitizeText strips all markup from a free-text form field and returns
// plain text. The result never contains '<' or '>'.
func SanitizeText(raw string) string {
	text := strings.TrimSpace(raw)
	for i := 0; i < maxSanitizePasses && text != ""; i++ {
		next := html.UnescapeString(textSanitizer().Sanitize(text))
		if next == text {
			break
		}
		text = next
	}
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '<' || r == '>' {
			return -1
		}
		return r
	}, text))
}
