package fonts

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"

	"github.com/wudi/letterkit/ir/semantic"
)

// Names of the built-in faces.
const (
	Helvetica     = "Helvetica"
	HelveticaBold = "Helvetica-Bold"
)

// StandardFace is one of the PDF base-14 fonts, encoded with WinAnsiEncoding.
// Nothing is embedded; viewers supply the outlines.
type StandardFace struct {
	font   *semantic.Font
	widths *[256]int
}

// Standard returns the named built-in face.
func Standard(name string) (*StandardFace, error) {
	var widths *[256]int
	switch name {
	case Helvetica:
		widths = &helveticaWidths
	case HelveticaBold:
		widths = &helveticaBoldWidths
	default:
		return nil, fmt.Errorf("unsupported standard font %q", name)
	}
	return &StandardFace{
		font: &semantic.Font{
			Subtype:  "Type1",
			BaseFont: name,
			Encoding: "WinAnsiEncoding",
		},
		widths: widths,
	}, nil
}

// MustStandard is Standard for names known at compile time.
func MustStandard(name string) *StandardFace {
	f, err := Standard(name)
	if err != nil {
		panic(err)
	}
	return f
}

func (s *StandardFace) Name() string         { return s.font.BaseFont }
func (s *StandardFace) Font() *semantic.Font { return s.font }

func (s *StandardFace) Measure(text string, size float64) float64 {
	total := 0
	for _, b := range winAnsi(text) {
		total += s.widths[b]
	}
	return float64(total) * size / 1000
}

func (s *StandardFace) Encode(text string) semantic.StringOperand {
	return semantic.StringOperand{Value: winAnsi(text)}
}

func (s *StandardFace) Covers(text string) bool {
	for _, r := range text {
		if _, ok := charmap.Windows1252.EncodeRune(foldRune(r)); !ok {
			return false
		}
	}
	return true
}

// winAnsi maps text to WinAnsiEncoding bytes. Runes outside the code page
// become '?'.
func winAnsi(text string) []byte {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		r = foldRune(r)
		if b, ok := charmap.Windows1252.EncodeRune(r); ok {
			out = append(out, b)
			continue
		}
		out = append(out, '?')
	}
	return out
}

// foldRune substitutes look-alikes WinAnsi can show for characters common in
// Uzbek Latin text that it cannot.
func foldRune(r rune) rune {
	switch r {
	case 'ʻ', 'ʽ': // modifier letter turned comma / reversed comma
		return '‘'
	case 'ʼ', '′': // modifier letter apostrophe, prime
		return '’'
	case ' ', ' ', ' ':
		return ' '
	case '‑':
		return '-'
	}
	return r
}
