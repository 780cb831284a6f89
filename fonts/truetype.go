package fonts

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	gofont "github.com/go-text/typesetting/font"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/wudi/letterkit/ir/semantic"
)

// TrueTypeFace is an embedded TrueType font written as a Type0 font with
// Identity-H encoding and a FontFile2 stream. ToUnicode only lists glyphs
// that were encoded, and Subset trims the program to those glyphs.
type TrueTypeFace struct {
	font   *semantic.Font
	sfnt   *sfnt.Font
	shape  *gofont.Face
	buf    sfnt.Buffer
	widths map[int]int
	dw     int
	data   []byte
	used   map[int]bool
	subset bool
}

// LoadTrueType parses a TrueType/OpenType font with glyf outlines.
func LoadTrueType(name string, data []byte) (*TrueTypeFace, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFont
	}
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse truetype: %w", err)
	}
	unitsPerEm := f.UnitsPerEm()
	if unitsPerEm == 0 {
		return nil, fmt.Errorf("invalid unitsPerEm")
	}
	face := &TrueTypeFace{sfnt: f, data: data, used: map[int]bool{}}
	buf := &face.buf
	ppem := fixed.Int26_6(unitsPerEm << 6)

	baseName := strings.TrimSpace(name)
	if ps, _ := f.Name(buf, sfnt.NameIDPostScript); len(ps) > 0 {
		baseName = ps
	}
	if baseName == "" {
		baseName = "CustomTT"
	}
	baseName = sanitizeName(baseName)

	face.widths = glyphWidths(f, buf, unitsPerEm, ppem)
	face.dw = face.widths[0]
	if face.dw == 0 {
		face.dw = 1000
	}

	metrics, _ := f.Metrics(buf, ppem, xfont.HintingNone)
	bounds, _ := f.Bounds(buf, ppem, xfont.HintingNone)
	capHeight := metrics.CapHeight
	if capHeight == 0 {
		capHeight = metrics.Ascent
	}
	descriptor := &semantic.FontDescriptor{
		FontName:    baseName,
		Flags:       32, // nonsymbolic
		ItalicAngle: italicAngle(f),
		Ascent:      scaleFixed(metrics.Ascent, unitsPerEm),
		Descent:     -scaleFixed(metrics.Descent, unitsPerEm),
		CapHeight:   scaleFixed(capHeight, unitsPerEm),
		StemV:       80,
		FontBBox: [4]float64{
			scaleFixed(bounds.Min.X, unitsPerEm),
			-scaleFixed(bounds.Max.Y, unitsPerEm),
			scaleFixed(bounds.Max.X, unitsPerEm),
			-scaleFixed(bounds.Min.Y, unitsPerEm),
		},
		FontFile:     data,
		FontFileType: "FontFile2",
	}

	cidInfo := semantic.CIDSystemInfo{Registry: "Adobe", Ordering: "Identity", Supplement: 0}
	face.font = &semantic.Font{
		Subtype:       "Type0",
		BaseFont:      baseName,
		Encoding:      "Identity-H",
		CIDSystemInfo: &cidInfo,
		ToUnicode:     map[int][]rune{},
		DescendantFont: &semantic.CIDFont{
			Subtype:       "CIDFontType2",
			BaseFont:      baseName,
			CIDSystemInfo: cidInfo,
			DW:            face.dw,
			W:             face.widths,
			Descriptor:    descriptor,
		},
	}

	// Shaping is optional; nominal cmap lookup covers fonts go-text rejects.
	if sf, err := gofont.ParseTTF(bytes.NewReader(data)); err == nil {
		face.shape = sf
	}
	return face, nil
}

func (t *TrueTypeFace) Name() string         { return t.font.BaseFont }
func (t *TrueTypeFace) Font() *semantic.Font { return t.font }

func (t *TrueTypeFace) Measure(text string, size float64) float64 {
	total := 0
	for _, g := range t.glyphs([]rune(text)) {
		total += t.width(g.ID)
	}
	return float64(total) * size / 1000
}

func (t *TrueTypeFace) Encode(text string) semantic.StringOperand {
	glyphs := t.glyphs([]rune(text))
	out := make([]byte, 0, 2*len(glyphs))
	for _, g := range glyphs {
		out = append(out, byte(g.ID>>8), byte(g.ID))
		t.used[g.ID] = true
		if len(g.Runes) > 0 {
			if _, seen := t.font.ToUnicode[g.ID]; !seen {
				t.font.ToUnicode[g.ID] = g.Runes
			}
		}
	}
	return semantic.StringOperand{Value: out, Hex: true}
}

// Subset replaces the embedded program with one holding only the glyphs
// encoded so far and prefixes the font name with a subset tag. Call it once,
// after the last Encode.
func (t *TrueTypeFace) Subset() error {
	if t.subset {
		return nil
	}
	data, err := subsetGlyf(t.data, t.used)
	if err != nil {
		return err
	}
	t.subset = true
	name := subsetTag(t.used) + "+" + t.font.BaseFont
	t.font.BaseFont = name
	cid := t.font.DescendantFont
	cid.BaseFont = name
	cid.Descriptor.FontName = name
	cid.Descriptor.FontFile = data
	return nil
}

func (t *TrueTypeFace) Covers(text string) bool {
	for _, r := range text {
		if r == ' ' || r == '\n' {
			continue
		}
		gid, err := t.sfnt.GlyphIndex(&t.buf, r)
		if err != nil || gid == 0 {
			return false
		}
	}
	return true
}

func (t *TrueTypeFace) width(gid int) int {
	if w, ok := t.widths[gid]; ok {
		return w
	}
	return t.dw
}

func (t *TrueTypeFace) glyphs(runes []rune) []ShapedGlyph {
	if len(runes) == 0 {
		return nil
	}
	if t.shape != nil {
		if out := shapeRunes(t.shape, runes); len(out) > 0 {
			return out
		}
	}
	out := make([]ShapedGlyph, 0, len(runes))
	for i, r := range runes {
		gid, err := t.sfnt.GlyphIndex(&t.buf, r)
		if err != nil {
			gid = 0
		}
		out = append(out, ShapedGlyph{
			ID:       int(gid),
			Cluster:  i,
			XAdvance: float64(t.width(int(gid))),
			Runes:    []rune{r},
		})
	}
	return out
}

func glyphWidths(font *sfnt.Font, buf *sfnt.Buffer, unitsPerEm sfnt.Units, ppem fixed.Int26_6) map[int]int {
	glyphs := font.NumGlyphs()
	widths := make(map[int]int, glyphs)
	for i := 0; i < glyphs; i++ {
		adv, err := font.GlyphAdvance(buf, sfnt.GlyphIndex(i), ppem, xfont.HintingNone)
		if err != nil {
			continue
		}
		widths[i] = int(math.Round(scaleFixed(adv, unitsPerEm)))
	}
	return widths
}

func italicAngle(font *sfnt.Font) float64 {
	post := font.PostTable()
	if post == nil {
		return 0
	}
	return post.ItalicAngle
}

func scaleFixed(val fixed.Int26_6, unitsPerEm sfnt.Units) float64 {
	return float64(val) * 1000.0 / (64.0 * float64(unitsPerEm))
}

// sanitizeName drops characters that are delimiters in PDF names.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if r <= ' ' || r > '~' || strings.ContainsRune("()<>[]{}/%#", r) {
			return -1
		}
		return r
	}, name)
}
