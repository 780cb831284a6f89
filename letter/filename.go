package letter

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lower-cases s and replaces every run of characters outside [a-z0-9]
// with a single hyphen.
func Slug(s string) string {
	return nonSlug.ReplaceAllString(cases.Lower(language.Und).String(s), "-")
}

// Filename names the exported document
// "{reference}-{recipient}.pdf", defaulting to "letter" and "recipient".
// Path separators in the reference are replaced by hyphens.
func Filename(meta Meta) string {
	ref := strings.NewReplacer("/", "-", `\`, "-").Replace(strings.TrimSpace(meta.Reference))
	if ref == "" {
		ref = "letter"
	}
	recipient := Slug(meta.RecipientName)
	if recipient == "" {
		recipient = "recipient"
	}
	return ref + "-" + recipient + ".pdf"
}
