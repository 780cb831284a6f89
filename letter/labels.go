package letter

import (
	"strings"

	"golang.org/x/text/language"
)

// Labels are the fixed captions printed around the letter content.
type Labels struct {
	Number      string
	Date        string
	Attachments string
	Notes       string
}

// Placeholder is drawn in the logo box when no logo could be embedded.
const Placeholder = "LOGO"

var labelsByLanguage = map[string]Labels{
	"uz": {
		Number:      "Ma'lumotnoma No.",
		Date:        "Sana:",
		Attachments: "Ilovalar:",
		Notes:       "Qo'shimcha eslatma:",
	},
	"ru": {
		Number:      "Справка №",
		Date:        "Дата:",
		Attachments: "Приложения:",
		Notes:       "Дополнительно:",
	},
	"en": {
		Number:      "Reference No.",
		Date:        "Date:",
		Attachments: "Attachments:",
		Notes:       "Additional notes:",
	},
}

var priorityLabels = map[string]map[Priority]string{
	"uz": {PriorityLow: "Past", PriorityNormal: "Normal", PriorityHigh: "Yuqori"},
	"ru": {PriorityLow: "Низкий", PriorityNormal: "Обычный", PriorityHigh: "Высокий"},
	"en": {PriorityLow: "Low", PriorityNormal: "Normal", PriorityHigh: "High"},
}

// DefaultLanguage is used for empty or unknown language codes.
const DefaultLanguage = "uz"

// baseLanguage reduces a BCP 47 tag such as "ru-RU" to a supported base
// language, or DefaultLanguage.
func baseLanguage(code string) string {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return DefaultLanguage
	}
	base, _ := tag.Base()
	if _, ok := labelsByLanguage[base.String()]; ok {
		return base.String()
	}
	return DefaultLanguage
}

// LabelsFor returns the captions for a language code.
func LabelsFor(code string) Labels {
	return labelsByLanguage[baseLanguage(code)]
}

// Label returns the display name of p in the given language.
func (p Priority) Label(code string) string {
	if p == "" {
		p = PriorityNormal
	}
	if s, ok := priorityLabels[baseLanguage(code)][p]; ok {
		return s
	}
	return string(p)
}

func (l Labels) text() string {
	return strings.Join([]string{l.Number, l.Date, l.Attachments, l.Notes, "—"}, " ")
}
