package builder

import (
	"errors"
	"fmt"

	"github.com/wudi/letterkit/fonts"
	"github.com/wudi/letterkit/ir/semantic"
)

// ErrNoPages is returned by Build when no page was created.
var ErrNoPages = errors.New("document has no pages")

// PDFBuilder provides a fluent API for PDF construction.
type PDFBuilder interface {
	NewPage(width, height float64) PageBuilder
	Page(index int) PageBuilder
	PageCount() int
	SetInfo(info *semantic.DocumentInfo) PDFBuilder
	SetLanguage(lang string) PDFBuilder
	RegisterFace(name string, face fonts.Face) PDFBuilder
	MeasureText(text, font string, size float64) float64
	Build() (*semantic.Document, error)
}

// PageBuilder provides a fluent API for page construction.
type PageBuilder interface {
	DrawText(text string, x, y float64, opts TextOptions) PageBuilder
	DrawImage(img *semantic.Image, x, y, width, height float64) PageBuilder
	DrawRectangle(x, y, width, height float64, opts RectOptions) PageBuilder
	DrawLine(x1, y1, x2, y2 float64, opts LineOptions) PageBuilder
	Index() int
	Finish() PDFBuilder
}

// TextOptions configures text drawing.
type TextOptions struct {
	Font     string
	FontSize float64
	Color    Color
}

// RectOptions configures rectangle drawing (defaults to stroke if neither fill nor stroke is set).
type RectOptions struct {
	StrokeColor Color
	FillColor   Color
	LineWidth   float64
	Opacity     float64 // 0 means opaque
	Fill        bool
	Stroke      bool
}

// LineOptions configures line drawing.
type LineOptions struct {
	StrokeColor Color
	LineWidth   float64
}

// Color is an RGB color with components in [0,1]. The zero value means
// "leave the current color unchanged"; use RGB to get an explicit color.
type Color struct {
	R, G, B float64
	A       float64
}

// RGB returns an explicit color from 8-bit channels.
func RGB(r, g, b uint8) Color {
	return Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255, A: 1}
}

type builderImpl struct {
	pages      []*semantic.Page
	info       *semantic.DocumentInfo
	lang       string
	faces      map[string]fonts.Face
	defaultKey string
	images     map[*semantic.Image]string
	gstates    map[float64]string
}

type pageBuilderImpl struct {
	parent *builderImpl
	page   *semantic.Page
}

// NewBuilder constructs a PDFBuilder. Helvetica is registered as the default
// face under "F1".
func NewBuilder() PDFBuilder {
	b := &builderImpl{
		faces:   map[string]fonts.Face{},
		images:  map[*semantic.Image]string{},
		gstates: map[float64]string{},
	}
	b.RegisterFace("F1", fonts.MustStandard(fonts.Helvetica))
	b.defaultKey = "F1"
	return b
}

func (b *builderImpl) NewPage(w, h float64) PageBuilder {
	p := &semantic.Page{
		Index:    len(b.pages),
		MediaBox: semantic.Rectangle{LLX: 0, LLY: 0, URX: w, URY: h},
	}
	b.pages = append(b.pages, p)
	return &pageBuilderImpl{parent: b, page: p}
}

func (b *builderImpl) Page(index int) PageBuilder {
	if index < 0 || index >= len(b.pages) {
		return nil
	}
	return &pageBuilderImpl{parent: b, page: b.pages[index]}
}

func (b *builderImpl) PageCount() int { return len(b.pages) }

func (b *builderImpl) SetInfo(info *semantic.DocumentInfo) PDFBuilder {
	b.info = info
	return b
}

func (b *builderImpl) SetLanguage(lang string) PDFBuilder {
	b.lang = lang
	return b
}

// RegisterFace makes face available to DrawText under name. A nil face is
// ignored.
func (b *builderImpl) RegisterFace(name string, face fonts.Face) PDFBuilder {
	if face == nil || name == "" {
		return b
	}
	b.faces[name] = face
	return b
}

func (b *builderImpl) MeasureText(text, font string, size float64) float64 {
	face, _ := b.faceFor(font)
	return face.Measure(text, size)
}

func (b *builderImpl) Build() (*semantic.Document, error) {
	if len(b.pages) == 0 {
		return nil, ErrNoPages
	}
	for i, p := range b.pages {
		if p.MediaBox.URX <= p.MediaBox.LLX || p.MediaBox.URY <= p.MediaBox.LLY {
			return nil, fmt.Errorf("page %d: invalid media box %+v", i, p.MediaBox)
		}
	}
	return &semantic.Document{Pages: b.pages, Info: b.info, Lang: b.lang}, nil
}

func (b *builderImpl) faceFor(name string) (fonts.Face, string) {
	if face, ok := b.faces[name]; ok {
		return face, name
	}
	return b.faces[b.defaultKey], b.defaultKey
}

func (b *builderImpl) imageName(img *semantic.Image) string {
	if name, ok := b.images[img]; ok {
		return name
	}
	name := fmt.Sprintf("Im%d", len(b.images)+1)
	b.images[img] = name
	return name
}

func (b *builderImpl) gstateName(alpha float64) string {
	if name, ok := b.gstates[alpha]; ok {
		return name
	}
	name := fmt.Sprintf("GS%d", len(b.gstates)+1)
	b.gstates[alpha] = name
	return name
}

func (p *pageBuilderImpl) Index() int         { return p.page.Index }
func (p *pageBuilderImpl) Finish() PDFBuilder { return p.parent }

func (p *pageBuilderImpl) DrawText(text string, x, y float64, opts TextOptions) PageBuilder {
	if text == "" {
		return p
	}
	face, key := p.parent.faceFor(opts.Font)
	res := p.ensureResources()
	if res.Fonts == nil {
		res.Fonts = make(map[string]*semantic.Font)
	}
	res.Fonts[key] = face.Font()
	size := opts.FontSize
	if size <= 0 {
		size = 12
	}

	ops := p.ensureContentOps()
	*ops = append(*ops, semantic.Operation{Operator: "BT"})
	*ops = append(*ops, semantic.Operation{
		Operator: "Tf",
		Operands: []semantic.Operand{semantic.NameOperand{Value: key}, semantic.NumberOperand{Value: size}},
	})
	*ops = append(*ops, semantic.Operation{
		Operator: "Tm",
		Operands: numbers(1, 0, 0, 1, x, y),
	})
	appendColorOp(ops, opts.Color, false)
	*ops = append(*ops, semantic.Operation{
		Operator: "Tj",
		Operands: []semantic.Operand{face.Encode(text)},
	})
	*ops = append(*ops, semantic.Operation{Operator: "ET"})
	return p
}

func (p *pageBuilderImpl) DrawImage(img *semantic.Image, x, y, width, height float64) PageBuilder {
	if img == nil {
		return p
	}
	res := p.ensureResources()
	if res.XObjects == nil {
		res.XObjects = make(map[string]*semantic.Image)
	}
	name := p.parent.imageName(img)
	res.XObjects[name] = img

	w := width
	if w == 0 {
		w = float64(img.Width)
	}
	h := height
	if h == 0 {
		h = float64(img.Height)
	}
	ops := p.ensureContentOps()
	*ops = append(*ops, semantic.Operation{Operator: "q"})
	*ops = append(*ops, semantic.Operation{Operator: "cm", Operands: numbers(w, 0, 0, h, x, y)})
	*ops = append(*ops, semantic.Operation{
		Operator: "Do",
		Operands: []semantic.Operand{semantic.NameOperand{Value: name}},
	})
	*ops = append(*ops, semantic.Operation{Operator: "Q"})
	return p
}

func (p *pageBuilderImpl) DrawRectangle(x, y, width, height float64, opts RectOptions) PageBuilder {
	po := opts
	if !po.Stroke && !po.Fill {
		po.Stroke = true
	}
	ops := p.ensureContentOps()
	*ops = append(*ops, semantic.Operation{Operator: "q"})
	if po.Opacity > 0 && po.Opacity < 1 {
		p.applyOpacity(ops, po.Opacity)
	}
	if po.Fill {
		appendColorOp(ops, po.FillColor, false)
	}
	if po.Stroke {
		appendColorOp(ops, po.StrokeColor, true)
		if po.LineWidth > 0 {
			*ops = append(*ops, semantic.Operation{Operator: "w", Operands: numbers(po.LineWidth)})
		}
	}
	*ops = append(*ops, semantic.Operation{Operator: "re", Operands: numbers(x, y, width, height)})
	*ops = append(*ops, semantic.Operation{Operator: paintOperator(po.Fill, po.Stroke)})
	*ops = append(*ops, semantic.Operation{Operator: "Q"})
	return p
}

func (p *pageBuilderImpl) DrawLine(x1, y1, x2, y2 float64, opts LineOptions) PageBuilder {
	ops := p.ensureContentOps()
	*ops = append(*ops, semantic.Operation{Operator: "q"})
	appendColorOp(ops, opts.StrokeColor, true)
	if opts.LineWidth > 0 {
		*ops = append(*ops, semantic.Operation{Operator: "w", Operands: numbers(opts.LineWidth)})
	}
	*ops = append(*ops, semantic.Operation{Operator: "m", Operands: numbers(x1, y1)})
	*ops = append(*ops, semantic.Operation{Operator: "l", Operands: numbers(x2, y2)})
	*ops = append(*ops, semantic.Operation{Operator: "S"})
	*ops = append(*ops, semantic.Operation{Operator: "Q"})
	return p
}

func (p *pageBuilderImpl) applyOpacity(ops *[]semantic.Operation, alpha float64) {
	name := p.parent.gstateName(alpha)
	res := p.ensureResources()
	if res.ExtGStates == nil {
		res.ExtGStates = make(map[string]semantic.ExtGState)
	}
	res.ExtGStates[name] = semantic.ExtGState{FillAlpha: alpha, StrokeAlpha: alpha}
	*ops = append(*ops, semantic.Operation{
		Operator: "gs",
		Operands: []semantic.Operand{semantic.NameOperand{Value: name}},
	})
}

func (p *pageBuilderImpl) ensureResources() *semantic.Resources {
	if p.page.Resources == nil {
		p.page.Resources = &semantic.Resources{}
	}
	return p.page.Resources
}

func (p *pageBuilderImpl) ensureContentOps() *[]semantic.Operation {
	if len(p.page.Contents) == 0 {
		p.page.Contents = append(p.page.Contents, semantic.ContentStream{})
	}
	return &p.page.Contents[len(p.page.Contents)-1].Operations
}

func appendColorOp(ops *[]semantic.Operation, c Color, stroking bool) {
	if isZeroColor(c) {
		return
	}
	op := "rg"
	if stroking {
		op = "RG"
	}
	*ops = append(*ops, semantic.Operation{Operator: op, Operands: numbers(c.R, c.G, c.B)})
}

func isZeroColor(c Color) bool {
	return c.R == 0 && c.G == 0 && c.B == 0 && c.A == 0
}

func numbers(vals ...float64) []semantic.Operand {
	out := make([]semantic.Operand, len(vals))
	for i, v := range vals {
		out[i] = semantic.NumberOperand{Value: v}
	}
	return out
}

func paintOperator(fill, stroke bool) string {
	switch {
	case fill && stroke:
		return "B"
	case fill:
		return "f"
	default:
		return "S"
	}
}
