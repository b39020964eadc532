// Package report assembles the HTML email sent for a bug report.
package report

import (
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/bugreport/internal/model"
)

const (
	DefaultLeadIn = "A new bug report has been submitted!"
	LineBreak     = "<br />"
)

var separator = strings.Repeat("=", 30)

// Banner precedes the flattened diagnostics in the body.
var Banner = separator + " Debugging Information " + separator

// Rendered is the final message handed to the mail transport.
type Rendered struct {
	To          string
	Subject     string
	HTMLBody    string
	Attachments []string
}

type Composer struct {
	LeadIn string

	body  *bluemonday.Policy
	plain *bluemonday.Policy
}

// NewComposer returns a Composer that opens every body with leadIn, or with
// DefaultLeadIn when leadIn is empty.
func NewComposer(leadIn string) *Composer {
	return &Composer{
		LeadIn: leadIn,
		body:   BodyPolicy(),
		plain:  bluemonday.StrictPolicy(),
	}
}

// BodyPolicy allows only a (href, title), br, em and strong.
func BodyPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("br", "em", "strong")
	p.AllowAttrs("href", "title").OnElements("a")
	p.RequireParseableURLs(true)
	p.AllowURLSchemes("http", "https", "mailto")
	return p
}

// Compose builds the report. diagnostics holds pre-flattened lines; nil means
// none were supplied. identity is nil for anonymous submitters.
func (c *Composer) Compose(message string, diagnostics []string, identity *model.Identity, siteURL string, cfg model.ReportConfig) Rendered {
	lines := []string{
		c.leadIn(),
		"",
		fmt.Sprintf("Site:  %s", html.EscapeString(siteURL)),
	}

	if identity != nil {
		lines = append(lines,
			fmt.Sprintf("Username:  %s", html.EscapeString(identity.Username)),
			fmt.Sprintf("Email:  %s", html.EscapeString(identity.Email)),
		)
	}

	lines = append(lines, "", "User Message:", c.plain.Sanitize(message))

	if cfg.IncludeDiagnostics && diagnostics != nil {
		lines = append(lines, "", Banner)
		lines = append(lines, diagnostics...)
	}

	return Rendered{
		To:       SanitizeEmail(cfg.RecipientEmail),
		Subject:  c.SanitizeText(cfg.SubjectLine),
		HTMLBody: reencodeNBSP(c.body.Sanitize(strings.Join(lines, LineBreak))),
	}
}

// reencodeNBSP restores the &nbsp; entities the sanitizer decodes into raw
// U+00A0, so diagnostic indentation stays escaped in the body.
func reencodeNBSP(body string) string {
	return strings.ReplaceAll(body, "\u00a0", "&nbsp;")
}

func (c *Composer) leadIn() string {
	if strings.TrimSpace(c.LeadIn) == "" {
		return DefaultLeadIn
	}
	return c.LeadIn
}
