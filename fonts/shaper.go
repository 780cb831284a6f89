package fonts

import (
	"unicode"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
)

// ShapedGlyph is one glyph of a shaped run. Runes holds the source text the
// glyph stands for; glyphs that continue a cluster carry none.
type ShapedGlyph struct {
	ID       int
	Cluster  int
	XAdvance float64 // 1/1000 em
	Runes    []rune
}

// shapeRunes shapes runes left to right at 1000 units per em.
func shapeRunes(face *gofont.Face, runes []rune) []ShapedGlyph {
	script := DetectScript(runes)
	out := (&shaping.HarfbuzzShaper{}).Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      face,
		Size:      fixed.Int26_6(1000 * 64),
		Script:    script,
		Language:  language.DefaultLanguage(),
	})

	result := make([]ShapedGlyph, 0, len(out.Glyphs))
	for i, g := range out.Glyphs {
		start := g.ClusterIndex
		end := len(runes)
		for _, next := range out.Glyphs[i+1:] {
			if next.ClusterIndex > start {
				end = next.ClusterIndex
				break
			}
		}
		var src []rune
		if i == 0 || out.Glyphs[i-1].ClusterIndex != start {
			if start >= 0 && start < end && end <= len(runes) {
				src = append([]rune(nil), runes[start:end]...)
			}
		}
		result = append(result, ShapedGlyph{
			ID:       int(g.GlyphID),
			Cluster:  start,
			XAdvance: float64(g.XAdvance) / 64.0,
			Runes:    src,
		})
	}
	return result
}

// DetectScript returns the dominant script of runes, defaulting to Latin.
func DetectScript(runes []rune) language.Script {
	counts := make(map[language.Script]int)
	maxCount := 0
	best := language.Latin
	for _, r := range runes {
		script := scriptFromRune(r)
		if script == language.Unknown {
			continue
		}
		counts[script]++
		if counts[script] > maxCount {
			maxCount = counts[script]
			best = script
		}
	}
	return best
}

func scriptFromRune(r rune) language.Script {
	switch {
	case unicode.Is(unicode.Latin, r):
		return language.Latin
	case unicode.Is(unicode.Cyrillic, r):
		return language.Cyrillic
	case unicode.Is(unicode.Greek, r):
		return language.Greek
	case unicode.Is(unicode.Arabic, r):
		return language.Arabic
	case unicode.Is(unicode.Hebrew, r):
		return language.Hebrew
	}
	return language.Unknown
}
