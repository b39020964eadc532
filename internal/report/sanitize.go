package report

import (
	"html"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// SanitizeText makes a single-line header value: markup is stripped, control
// characters dropped and runs of whitespace collapsed.
func (c *Composer) SanitizeText(s string) string {
	s = html.UnescapeString(c.plain.Sanitize(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// SanitizeEmail returns the trimmed address, or "" when it is not a valid
// email address.
func SanitizeEmail(addr string) string {
	addr = strings.TrimSpace(addr)
	if err := validate.Var(addr, "required,email"); err != nil {
		return ""
	}
	return addr
}
