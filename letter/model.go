package letter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrExportFailed wraps every error that prevents a document from being
// produced. Callers must not offer partial output when it is returned.
var ErrExportFailed = errors.New("letter export failed")

// Priority ranks a letter.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority accepts a priority name in any case. An empty string is
// treated as normal.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return PriorityNormal, nil
	}
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

// Meta describes the letter as a whole.
type Meta struct {
	Title         string   `json:"title" yaml:"title"`
	Category      string   `json:"category" yaml:"category"`
	RecipientName string   `json:"recipientName" yaml:"recipient-name"`
	RecipientRole string   `json:"recipientRole" yaml:"recipient-role"`
	Organization  string   `json:"organization" yaml:"organization"`
	Priority      Priority `json:"priority" yaml:"priority"`
	Language      string   `json:"language" yaml:"language"`
	DueDate       string   `json:"dueDate" yaml:"due-date"` // YYYY-MM-DD
	Reference     string   `json:"reference" yaml:"reference"`
	SignatoryName string   `json:"signatoryName" yaml:"signatory-name"`
	SignatoryRole string   `json:"signatoryRole" yaml:"signatory-role"`
}

// Section is a headed block of body text. ID is opaque to the renderer.
type Section struct {
	ID      string `json:"id" yaml:"id"`
	Heading string `json:"heading" yaml:"heading"`
	Body    string `json:"body" yaml:"body"`
}

// Attachment is listed, numbered, after the body.
type Attachment struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Payload is the content of one letter.
type Payload struct {
	Meta        Meta         `json:"meta" yaml:"meta"`
	Sections    []Section    `json:"sections" yaml:"sections"`
	Notes       string       `json:"notes" yaml:"notes"`
	Attachments []Attachment `json:"attachments" yaml:"attachments"`
}

// Validate rejects payloads the renderer cannot interpret. Empty content is
// valid: a letter without sections renders its header and footer only.
func (p Payload) Validate() error {
	if p.Meta.Priority != "" && !p.Meta.Priority.Valid() {
		return fmt.Errorf("meta.priority: unknown value %q", p.Meta.Priority)
	}
	return nil
}

// Letterhead is the branding applied to every letter. Colors are hex strings.
type Letterhead struct {
	Company         string   `json:"company" yaml:"company"`
	Tagline         string   `json:"tagline" yaml:"tagline"`
	Contacts        []string `json:"contacts" yaml:"contacts"`
	PrimaryColor    string   `json:"primaryColor" yaml:"primary-color"`
	AccentColor     string   `json:"accentColor" yaml:"accent-color"`
	BackgroundColor string   `json:"backgroundColor" yaml:"background-color"`
	TextColor       string   `json:"textColor" yaml:"text-color"`
}

// Fonts carries optional TrueType programs. A nil slot falls back to the
// built-in Helvetica face of the same weight.
type Fonts struct {
	Body    []byte
	Heading []byte
}

// Request is the input of one render.
type Request struct {
	Payload    Payload
	Letterhead Letterhead
	Fonts      Fonts
	Logo       []byte
}

// Export is a finished document.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
	Pages       int
}

// ContentTypePDF is the MIME type of every Export.
const ContentTypePDF = "application/pdf"

// NormalizeContacts splits contact entries on newlines, trims them and
// drops blanks.
func NormalizeContacts(contacts []string) []string {
	var out []string
	for _, c := range contacts {
		for _, line := range strings.Split(strings.ReplaceAll(c, "\r", ""), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}
