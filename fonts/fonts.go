package fonts

import (
	"errors"

	"github.com/wudi/letterkit/ir/semantic"
	"github.com/wudi/letterkit/observability"
)

// ErrEmptyFont is returned when no font bytes were supplied.
var ErrEmptyFont = errors.New("font data is empty")

// Face measures and encodes text for a single font resource. Faces keep
// track of the glyphs they have encoded, so one Face belongs to one
// document and is not safe for concurrent use.
type Face interface {
	// Name is the PostScript name written as /BaseFont.
	Name() string
	// Font returns the resource the writer serializes.
	Font() *semantic.Font
	// Measure returns the advance width of text at size, in points.
	Measure(text string, size float64) float64
	// Encode returns the string operand for a Tj showing text.
	Encode(text string) semantic.StringOperand
	// Covers reports whether every rune of text has a glyph.
	Covers(text string) bool
}

// Embed loads a TrueType face from data. When data is empty or cannot be
// parsed the fallback face is returned and the reason is logged.
func Embed(role string, data []byte, fallback Face, log observability.Logger) Face {
	log = observability.OrNop(log)
	if len(data) == 0 {
		log.Warn("custom font missing, using built-in face",
			observability.String("asset", role),
			observability.String("fallback", fallback.Name()))
		return fallback
	}
	face, err := LoadTrueType(role, data)
	if err != nil {
		log.Warn("custom font embed failed, using built-in face",
			observability.String("asset", role),
			observability.String("fallback", fallback.Name()),
			observability.Error("error", err))
		return fallback
	}
	return face
}
