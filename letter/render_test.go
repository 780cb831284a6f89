package letter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"regexp"
	"slices"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/text/encoding/charmap"

	"github.com/wudi/letterkit/fonts"
	"github.com/wudi/letterkit/ir/semantic"
	"github.com/wudi/letterkit/observability"
	"github.com/wudi/letterkit/qr"
)

var renderDay = time.Date(2025, 4, 18, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return renderDay }

type drawn struct {
	text string
	font string
	size float64
	x, y float64
}

// drawnTexts lists the Tj strings of a page drawn with a built-in face, in
// drawing order.
func drawnTexts(t *testing.T, p *semantic.Page) []drawn {
	t.Helper()
	var out []drawn
	var cur drawn
	dec := charmap.Windows1252.NewDecoder()
	for _, cs := range p.Contents {
		for _, op := range cs.Operations {
			switch op.Operator {
			case "Tf":
				cur.font = op.Operands[0].(semantic.NameOperand).Value
				cur.size = op.Operands[1].(semantic.NumberOperand).Value
			case "Tm":
				cur.x = op.Operands[4].(semantic.NumberOperand).Value
				cur.y = op.Operands[5].(semantic.NumberOperand).Value
			case "Tj":
				raw := op.Operands[0].(semantic.StringOperand).Value
				s, err := dec.Bytes(raw)
				if err != nil {
					t.Fatalf("decode %q: %v", raw, err)
				}
				cur.text = string(s)
				out = append(out, cur)
			}
		}
	}
	return out
}

func composeDoc(t *testing.T, r *Renderer, req Request) (*semantic.Document, int) {
	t.Helper()
	doc, pages, err := r.compose(context.Background(), normalize(req))
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if pages != len(doc.Pages) {
		t.Fatalf("reported %d pages, document has %d", pages, len(doc.Pages))
	}
	return doc, pages
}

func observedLogger(level zapcore.Level) (observability.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return observability.NewZapLogger(zap.New(core)), logs
}

func indexOf(texts []drawn, s string) int {
	for i, d := range texts {
		if d.text == s {
			return i
		}
	}
	return -1
}

func TestRender_DefaultTemplateFitsOnOnePage(t *testing.T) {
	r := NewRenderer(Options{Clock: fixedClock})
	req := Request{Payload: DefaultPayload(renderDay), Letterhead: DefaultLetterhead()}
	doc, pages := composeDoc(t, r, req)
	if pages != 1 {
		t.Fatalf("pages = %d, want 1", pages)
	}
	texts := drawnTexts(t, doc.Pages[0])
	order := []string{
		"Ma'lumotnoma No. TR-2025-04-18",
		"Azizbek Ahmedov",
		req.Payload.Meta.Title,
		"Maqsad",
		"Asosiy tafsilotlar",
		"Keyingi qadamlar",
		"Ilovalar:",
		"Qo'shimcha eslatma:",
		"Rustam Ganiev",
	}
	last := -1
	for _, s := range order {
		i := indexOf(texts, s)
		if i < 0 {
			t.Fatalf("%q not drawn", s)
		}
		if i <= last {
			t.Fatalf("%q drawn out of order", s)
		}
		last = i
	}
	if indexOf(texts, "Sana: 2025-04-18") < 0 {
		t.Fatalf("date line missing")
	}
	if indexOf(texts, Placeholder) < 0 {
		t.Fatalf("logo placeholder missing without a logo")
	}

	var footer []string
	for _, d := range texts {
		if d.size == footerContactSize {
			footer = append(footer, d.text)
		}
	}
	if got, want := strings.Join(footer, " "), strings.Join(DefaultContacts, " "); got != want {
		t.Fatalf("footer contacts:\n got %q\nwant %q", got, want)
	}
	if i := indexOf(texts, `"PFK AGMK" MChJ | "PFK AGMK" LLC · UZ`); i < 0 {
		t.Fatalf("footer signature missing")
	}
	for _, d := range texts {
		if strings.Contains(d.text, " / ") && d.size == footerBrandSize {
			t.Fatalf("single page letter has a page marker %q", d.text)
		}
	}
}

func TestRender_ExportsPDF(t *testing.T) {
	r := NewRenderer(Options{Clock: fixedClock, Compression: 6})
	out, err := r.Render(context.Background(), Request{
		Payload:    DefaultPayload(renderDay),
		Letterhead: DefaultLetterhead(),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out.Filename != "TR-2025-04-18-azizbek-ahmedov.pdf" {
		t.Fatalf("filename = %q", out.Filename)
	}
	if out.ContentType != "application/pdf" || out.Pages != 1 {
		t.Fatalf("export = %q, %d pages", out.ContentType, out.Pages)
	}
	if !bytes.HasPrefix(out.Data, []byte("%PDF-1.7")) {
		t.Fatalf("missing header: %q", out.Data[:16])
	}
	if !bytes.HasSuffix(bytes.TrimSpace(out.Data), []byte("%%EOF")) {
		t.Fatalf("missing EOF marker")
	}
	if !bytes.Contains(out.Data, []byte("/Lang (uz)")) {
		t.Fatalf("catalog language missing")
	}
}

func TestRender_Deterministic(t *testing.T) {
	r := NewRenderer(Options{Clock: fixedClock, Compression: 6, Deterministic: true})
	req := Request{Payload: DefaultPayload(renderDay), Letterhead: DefaultLetterhead()}
	a, err := r.Render(context.Background(), req)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	b, err := r.Render(context.Background(), req)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.Equal(a.Data, b.Data) {
		t.Fatalf("identical requests produced different bytes")
	}
}

func longPayload(words int) Payload {
	body := make([]string, words)
	for i := range body {
		body[i] = fmt.Sprintf("word%03d", i+1)
	}
	p := DefaultPayload(renderDay)
	p.Sections = []Section{{ID: "long", Heading: "Batafsil", Body: strings.Join(body, " ")}}
	p.Attachments = nil
	p.Notes = ""
	return p
}

func TestRender_LongBodyFlowsAcrossPages(t *testing.T) {
	r := NewRenderer(Options{Clock: fixedClock})
	doc, pages := composeDoc(t, r, Request{Payload: longPayload(400), Letterhead: DefaultLetterhead()})
	if pages < 2 {
		t.Fatalf("pages = %d, want at least 2", pages)
	}

	var words []string
	headings := 0
	zone := 64.0
	for i, p := range doc.Pages {
		texts := drawnTexts(t, p)
		for _, d := range texts {
			if d.text == "Batafsil" {
				headings++
			}
			if d.size == bodySize && strings.HasPrefix(d.text, "word") {
				if d.y <= zone {
					t.Fatalf("page %d: line %q drawn at %.2f inside the footer zone", i+1, d.text, d.y)
				}
				words = append(words, strings.Fields(d.text)...)
			}
		}
		if marker := fmt.Sprintf("%d / %d", i+1, pages); indexOf(texts, marker) < 0 {
			t.Fatalf("page %d: marker %q missing", i+1, marker)
		}
		if i > 0 && indexOf(texts, Placeholder) >= 0 {
			t.Fatalf("page %d repeats the letterhead", i+1)
		}
	}
	if headings != 1 {
		t.Fatalf("heading drawn %d times", headings)
	}
	if len(words) != 400 {
		t.Fatalf("drew %d words, want 400", len(words))
	}
	for i, w := range words {
		if want := fmt.Sprintf("word%03d", i+1); w != want {
			t.Fatalf("word %d = %q, want %q", i, w, want)
		}
	}
}

func TestRender_CorruptLogoDrawsPlaceholder(t *testing.T) {
	log, logs := observedLogger(zapcore.WarnLevel)
	r := NewRenderer(Options{Clock: fixedClock, Logger: log})
	req := Request{
		Payload:    DefaultPayload(renderDay),
		Letterhead: DefaultLetterhead(),
		Logo:       []byte("\x89PNG\r\n\x1a\nnot really a png"),
	}
	out, err := r.Render(context.Background(), req)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out.Pages != 1 {
		t.Fatalf("pages = %d", out.Pages)
	}
	if got := logs.FilterField(zap.String("asset", "logo")).Len(); got != 1 {
		t.Fatalf("logo warnings = %d, want 1", got)
	}

	doc, _ := composeDoc(t, NewRenderer(Options{Clock: fixedClock}), req)
	if indexOf(drawnTexts(t, doc.Pages[0]), Placeholder) < 0 {
		t.Fatalf("placeholder not drawn")
	}
	if res := doc.Pages[0].Resources; res != nil && len(res.XObjects) != 0 {
		t.Fatalf("corrupt logo embedded as %v", res.XObjects)
	}
}

func TestRender_LogoReplacesPlaceholder(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 60, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 60; x++ {
			img.Set(x, y, color.RGBA{R: 27, G: 60, B: 83, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	r := NewRenderer(Options{Clock: fixedClock})
	doc, _ := composeDoc(t, r, Request{
		Payload:    DefaultPayload(renderDay),
		Letterhead: DefaultLetterhead(),
		Logo:       buf.Bytes(),
	})
	page := doc.Pages[0]
	if page.Resources == nil || len(page.Resources.XObjects) != 1 {
		t.Fatalf("logo not embedded")
	}
	if indexOf(drawnTexts(t, page), Placeholder) >= 0 {
		t.Fatalf("placeholder drawn next to a logo")
	}
	for _, op := range page.Contents[0].Operations {
		if op.Operator != "cm" {
			continue
		}
		w := op.Operands[0].(semantic.NumberOperand).Value
		h := op.Operands[3].(semantic.NumberOperand).Value
		if w != 60 || h != 30 {
			t.Fatalf("small logo drawn at %vx%v, want natural 60x30", w, h)
		}
	}
}

func TestQRSeed(t *testing.T) {
	tests := []struct {
		name      string
		reference string
		company   string
		want      string
	}{
		{"reference", "MN-2024/17", "AGMK", "MN-2024/17"},
		{"company", "", "AGMK", "AGMK"},
		{"blank reference", "   ", "AGMK", "AGMK"},
		{"nothing", "", "", ""},
		{"padded reference", " MN-2024/17 ", "AGMK", " MN-2024/17 "},
		{"padded company", "", " AGMK ", " AGMK "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := qrSeed(Meta{Reference: tt.reference}, Letterhead{Company: tt.company})
			if got != tt.want {
				t.Fatalf("qrSeed = %q, want %q", got, tt.want)
			}
		})
	}
}

// stampRuns counts the filled rectangles one module high.
func stampRuns(p *semantic.Page) int {
	module := qrSize / qr.DefaultDimension
	n := 0
	for _, cs := range p.Contents {
		for _, op := range cs.Operations {
			if op.Operator == "re" && op.Operands[3].(semantic.NumberOperand).Value == module {
				n++
			}
		}
	}
	return n
}

func TestRender_EmptyReferenceSeedsStampFromCompany(t *testing.T) {
	p := DefaultPayload(renderDay)
	p.Meta.Reference = ""
	lh := DefaultLetterhead()
	r := NewRenderer(Options{Clock: fixedClock})
	doc, _ := composeDoc(t, r, Request{Payload: p, Letterhead: lh})
	last := doc.Pages[len(doc.Pages)-1]

	if got, want := stampRuns(last), len(qr.Generate(lh.Company, qr.DefaultDimension).Runs()); got != want {
		t.Fatalf("stamp has %d runs, want %d", got, want)
	}
	if indexOf(drawnTexts(t, doc.Pages[0]), "Ma'lumotnoma No. —") < 0 {
		t.Fatalf("empty reference not shown as a dash")
	}

	lh.Company = ""
	doc, _ = composeDoc(t, r, Request{Payload: p, Letterhead: lh})
	last = doc.Pages[len(doc.Pages)-1]
	if got, want := stampRuns(last), len(qr.Generate(qr.DefaultSeed, qr.DefaultDimension).Runs()); got != want {
		t.Fatalf("stamp has %d runs, want %d", got, want)
	}
}

func TestRender_InvalidColorsFallBack(t *testing.T) {
	log, logs := observedLogger(zapcore.WarnLevel)
	lh := DefaultLetterhead()
	lh.PrimaryColor = "blue"
	lh.TextColor = "#12"
	r := NewRenderer(Options{Clock: fixedClock, Logger: log})
	if _, err := r.Render(context.Background(), Request{Payload: DefaultPayload(renderDay), Letterhead: lh}); err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, asset := range []string{"primary-color", "text-color"} {
		if logs.FilterField(zap.String("asset", asset)).Len() != 1 {
			t.Fatalf("no warning for %s", asset)
		}
	}
	if logs.FilterField(zap.String("asset", "accent-color")).Len() != 0 {
		t.Fatalf("valid accent color reported")
	}
}

func TestRender_EmbedsCustomFonts(t *testing.T) {
	log, logs := observedLogger(zapcore.WarnLevel)
	r := NewRenderer(Options{Clock: fixedClock, Logger: log})
	out, err := r.Render(context.Background(), Request{
		Payload:    DefaultPayload(renderDay),
		Letterhead: DefaultLetterhead(),
		Fonts:      Fonts{Body: goregular.TTF, Heading: []byte("corrupt")},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.Contains(out.Data, []byte("/FontFile2")) {
		t.Fatalf("body font not embedded")
	}
	if !regexp.MustCompile(`/BaseFont /[A-Z]{6}\+`).Match(out.Data) {
		t.Fatalf("body font not subset")
	}
	if !bytes.Contains(out.Data, []byte("/BaseFont /Helvetica-Bold")) {
		t.Fatalf("heading did not fall back to Helvetica-Bold")
	}
	if logs.FilterField(zap.String("asset", "heading-font")).Len() != 1 {
		t.Fatalf("heading fallback not logged")
	}
	if logs.FilterField(zap.String("asset", "body-font")).Len() != 0 {
		t.Fatalf("valid body font reported")
	}
}

func TestRender_LabelsFallBackWhenFontLacksGlyphs(t *testing.T) {
	log, logs := observedLogger(zapcore.WarnLevel)
	r := NewRenderer(Options{Logger: log})
	helvetica := fonts.MustStandard(fonts.Helvetica)

	if got := r.labels("en", helvetica); got != labelsByLanguage["en"] {
		t.Fatalf("labels(en) = %+v", got)
	}
	if got := r.labels("ru", helvetica); got != labelsByLanguage["uz"] {
		t.Fatalf("labels(ru) with Helvetica = %+v, want uz", got)
	}
	if logs.FilterField(zap.String("asset", "labels")).Len() != 1 {
		t.Fatalf("label fallback not logged")
	}
}

func TestRender_NoSections(t *testing.T) {
	p := Payload{Meta: Meta{Language: "en"}}
	r := NewRenderer(Options{Clock: fixedClock})
	out, err := r.Render(context.Background(), Request{Payload: p})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out.Pages != 1 || out.Filename != "letter-recipient.pdf" {
		t.Fatalf("export = %d pages, %q", out.Pages, out.Filename)
	}
	doc, _ := composeDoc(t, r, Request{Payload: p})
	texts := drawnTexts(t, doc.Pages[0])
	if indexOf(texts, "Date: 2025-04-18") < 0 {
		t.Fatalf("missing date falls back to today")
	}

	helvetica := fonts.MustStandard(fonts.Helvetica)
	headerBand := 792.0 - 145
	var header, footer []string
	for _, d := range texts {
		switch {
		case d.size == headerContactSize && d.y > headerBand:
			if w := helvetica.Measure(d.text, d.size); w > contactColumnWidth+1e-9 {
				t.Fatalf("header contact line %q is %.2fpt wide", d.text, w)
			}
			header = append(header, d.text)
		case d.size == footerContactSize:
			footer = append(footer, d.text)
		}
	}
	if len(header) < 2 {
		t.Fatalf("header contacts = %q, want the default contacts wrapped to the column", header)
	}
	if slices.Contains(header, DefaultContacts[0]) {
		t.Fatalf("header contact drawn unwrapped")
	}
	if got, want := strings.Join(footer, " "), strings.Join(DefaultContacts, " "); got != want {
		t.Fatalf("footer contacts:\n got %q\nwant %q", got, want)
	}
}

func TestRender_DateFallbackIsUTC(t *testing.T) {
	tashkent := time.FixedZone("UZT", 5*60*60)
	// 02:00 on the 19th in Tashkent is still the 18th in UTC.
	clock := func() time.Time { return time.Date(2025, 4, 19, 2, 0, 0, 0, tashkent) }
	r := NewRenderer(Options{Clock: clock})
	doc, _ := composeDoc(t, r, Request{Payload: Payload{Meta: Meta{Language: "en"}}})
	texts := drawnTexts(t, doc.Pages[0])
	if indexOf(texts, "Date: 2025-04-18") < 0 {
		t.Fatalf("date line is not the UTC date")
	}
}

func TestRender_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := NewRenderer(Options{}).Render(ctx, Request{Payload: DefaultPayload(renderDay)})
	if !errors.Is(err, ErrExportFailed) {
		t.Fatalf("err = %v, want ErrExportFailed", err)
	}
	if out != nil {
		t.Fatalf("partial export returned")
	}
}
