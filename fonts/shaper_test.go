package fonts_test

import (
	"testing"

	"github.com/go-text/typesetting/language"

	"github.com/wudi/letterkit/fonts"
)

func TestDetectScript(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect language.Script
	}{
		{"Latin", "Ma'lumotnoma", language.Latin},
		{"Cyrillic", "Справка о работе", language.Cyrillic},
		{"Greek", "Γειά σου", language.Greek},
		{"Mixed Latin dominant", "Toshkent Ташкент shahri", language.Latin},
		{"Mixed Cyrillic dominant", "PFK АГМК обществo", language.Cyrillic},
		{"Digits only", "2024 12", language.Latin},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := fonts.DetectScript([]rune(tc.input))
			if got != tc.expect {
				t.Errorf("Expected %v, got %v", tc.expect, got)
			}
		})
	}
}
