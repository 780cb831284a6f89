package layout

import (
	"github.com/wudi/letterkit/builder"
)

// Geometry is the fixed page grid of a letter, in points.
type Geometry struct {
	Width, Height  float64
	Margin         float64
	ParagraphGap   float64
	LineGap        float64
	HeaderReserved float64 // height kept free for the letterhead on the first page
	HeaderGap      float64 // space between the letterhead zone and the first body line
	FooterHeight   float64
}

// LetterGeometry is US Letter with the house margins.
func LetterGeometry() Geometry {
	return Geometry{
		Width:          612,
		Height:         792,
		Margin:         48,
		ParagraphGap:   14,
		LineGap:        4,
		HeaderReserved: 145,
		HeaderGap:      24,
		FooterHeight:   40,
	}
}

// MaxWidth is the usable text width.
func (g Geometry) MaxWidth() float64 { return g.Width - 2*g.Margin }

// FooterZone is the lowest cursor position body content may reach.
func (g Geometry) FooterZone() float64 { return g.FooterHeight + g.Margin/2 }

// BodyTop is the cursor at the top of a page without a letterhead.
func (g Geometry) BodyTop() float64 { return g.Height - g.Margin }

// HeaderBodyTop is the cursor right below the letterhead.
func (g Geometry) HeaderBodyTop() float64 { return g.Height - g.HeaderReserved - g.HeaderGap }

// HeaderFunc draws the letterhead onto the first page.
type HeaderFunc func(page builder.PageBuilder)

// Engine owns the vertical cursor and decides when to start a new page.
// The cursor is the baseline of the next line in PDF user space (y grows
// upwards), so content moves down by subtracting from it.
type Engine struct {
	b      builder.PDFBuilder
	geo    Geometry
	header HeaderFunc

	page     builder.PageBuilder
	cursorY  float64
	fresh    bool
	finished bool
}

// Option defines a configuration option for the Engine.
type Option func(*Engine)

// WithGeometry replaces the default letter geometry.
func WithGeometry(g Geometry) Option {
	return func(e *Engine) {
		e.geo = g
	}
}

// WithHeader sets the letterhead drawn on the first page only.
func WithHeader(fn HeaderFunc) Option {
	return func(e *Engine) {
		e.header = fn
	}
}

// NewEngine creates a new layout engine with optional configuration.
func NewEngine(b builder.PDFBuilder, opts ...Option) *Engine {
	e := &Engine{b: b, geo: LetterGeometry()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Geometry() Geometry { return e.geo }

// Page returns the page currently receiving content.
func (e *Engine) Page() builder.PageBuilder { return e.page }

// Cursor returns the baseline of the next line.
func (e *Engine) Cursor() float64 { return e.cursorY }

// Advance moves the cursor down by dy.
func (e *Engine) Advance(dy float64) {
	e.cursorY -= dy
	if dy != 0 {
		e.fresh = false
	}
}

// SetCursor moves the cursor to y.
func (e *Engine) SetCursor(y float64) {
	if y != e.cursorY {
		e.fresh = false
	}
	e.cursorY = y
}

// Start creates the first page, draws the letterhead and places the
// cursor below it. Calling Start twice is a no-op.
func (e *Engine) Start() builder.PageBuilder {
	if e.page == nil {
		e.newPage(true)
	}
	return e.page
}

// EnsureSpace starts a new page, without letterhead, when a block of the
// given height would reach the footer zone. It reports whether a page was
// added. A block taller than an empty page is drawn where it is: moving it
// to another blank page would not make it fit. After Finish no page is
// added.
func (e *Engine) EnsureSpace(needed float64) bool {
	if e.finished {
		return false
	}
	if e.page == nil {
		e.Start()
	}
	if e.cursorY-needed > e.geo.FooterZone() {
		return false
	}
	if e.fresh && e.cursorY >= e.geo.BodyTop() {
		return false
	}
	e.newPage(false)
	return true
}

// Finish closes the layout. It returns the number of pages produced.
func (e *Engine) Finish() int {
	if e.page == nil {
		e.Start()
	}
	e.finished = true
	return e.b.PageCount()
}

// Finished reports whether Finish was called.
func (e *Engine) Finished() bool { return e.finished }

func (e *Engine) newPage(letterhead bool) {
	e.page = e.b.NewPage(e.geo.Width, e.geo.Height)
	e.fresh = true
	if letterhead && e.header != nil {
		e.header(e.page)
		e.cursorY = e.geo.HeaderBodyTop()
		return
	}
	e.cursorY = e.geo.BodyTop()
}
