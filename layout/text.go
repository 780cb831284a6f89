package layout

import (
	"regexp"
	"strings"

	"github.com/wudi/letterkit/builder"
)

var (
	blankLine  = regexp.MustCompile(`\n\s*\n`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Measure returns the width of text in points at a fixed font and size.
type Measure func(text string) float64

// SplitParagraphs splits text on blank lines. Carriage returns are dropped,
// paragraphs are trimmed and empty ones removed.
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r", "")
	var out []string
	for _, p := range blankLine.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Words splits a line on runs of whitespace.
func Words(text string) []string {
	var out []string
	for _, w := range whitespace.Split(strings.TrimSpace(text), -1) {
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Wrap breaks paragraph greedily into lines no wider than maxWidth. Words
// are joined by single spaces; a word wider than maxWidth gets a line of
// its own and is never split.
func Wrap(paragraph string, measure Measure, maxWidth float64) []string {
	var lines []string
	line := ""
	for _, word := range Words(paragraph) {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if line != "" && measure(candidate) > maxWidth {
			lines = append(lines, line)
			line = word
			continue
		}
		line = candidate
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// Justify returns the x offset of each word so the line fills maxWidth.
// The extra space per gap is capped at twice the font size, so a short
// line stays ragged instead of scattering its words. It returns nil when
// the line has fewer than three words or no unused width.
func Justify(words []string, measure Measure, spaceWidth, maxWidth, fontSize float64) []float64 {
	if len(words) <= 2 {
		return nil
	}
	remaining := maxWidth - measure(strings.Join(words, " "))
	if remaining <= 0 {
		return nil
	}
	gap := spaceWidth + min(remaining/float64(len(words)-1), 2*fontSize)
	offsets := make([]float64, len(words))
	x := 0.0
	for i, w := range words {
		offsets[i] = x
		x += measure(w) + gap
	}
	return offsets
}

// Style configures Paragraph.
type Style struct {
	Font     string
	Size     float64
	Color    builder.Color
	Justify  bool
	GapAfter float64
}

// Paragraph lays out text split into paragraphs at the left margin. Every
// line is checked against the footer zone before it is drawn, so a
// paragraph may continue on the next page but a line never does. GapAfter
// is applied after each paragraph.
func (e *Engine) Paragraph(text string, style Style) {
	if style.Size <= 0 {
		style.Size = 11
	}
	measure := func(s string) float64 { return e.b.MeasureText(s, style.Font, style.Size) }
	spaceWidth := measure(" ")
	maxWidth := e.geo.MaxWidth()
	opts := builder.TextOptions{Font: style.Font, FontSize: style.Size, Color: style.Color}

	for _, paragraph := range SplitParagraphs(text) {
		lines := Wrap(paragraph, measure, maxWidth)
		for i, line := range lines {
			e.EnsureSpace(style.Size + e.geo.LineGap)
			last := i == len(lines)-1
			var offsets []float64
			words := Words(line)
			if style.Justify && !last {
				offsets = Justify(words, measure, spaceWidth, maxWidth, style.Size)
			}
			if offsets == nil {
				e.page.DrawText(line, e.geo.Margin, e.cursorY, opts)
			} else {
				for j, w := range words {
					e.page.DrawText(w, e.geo.Margin+offsets[j], e.cursorY, opts)
				}
			}
			e.Advance(style.Size + e.geo.LineGap)
		}
		e.Advance(style.GapAfter)
	}
}
