package builder

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/wudi/letterkit/fonts"
	"github.com/wudi/letterkit/ir/semantic"
)

func TestBuilder_DrawTextPopulatesResourcesAndOps(t *testing.T) {
	b := NewBuilder()
	bold := fonts.MustStandard(fonts.HelveticaBold)
	b.RegisterFace("Heading", bold)

	b.NewPage(200, 200).
		DrawText("Hello", 10, 20, TextOptions{
			Font:     "Heading",
			FontSize: 16,
			Color:    Color{R: 0.1, G: 0.2, B: 0.3, A: 1},
		}).
		Finish()
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build doc: %v", err)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("expected one page, got %d", len(doc.Pages))
	}
	page := doc.Pages[0]
	if page.Resources == nil || page.Resources.Fonts["Heading"] != bold.Font() {
		t.Fatalf("font not registered on page resources")
	}
	ops := page.Contents[0].Operations
	expectOperators := []string{"BT", "Tf", "Tm", "rg", "Tj", "ET"}
	if len(ops) != len(expectOperators) {
		t.Fatalf("got %d operations, want %d", len(ops), len(expectOperators))
	}
	for i, op := range expectOperators {
		if ops[i].Operator != op {
			t.Fatalf("operation %d = %s, want %s", i, ops[i].Operator, op)
		}
	}
	if nameOp, ok := ops[1].Operands[0].(semantic.NameOperand); !ok || nameOp.Value != "Heading" {
		t.Fatalf("Tf not set to Heading font")
	}
	tm := ops[2].Operands
	if tm[4].(semantic.NumberOperand).Value != 10 || tm[5].(semantic.NumberOperand).Value != 20 {
		t.Fatalf("Tm coordinates not set: %+v", tm)
	}
	if tj := ops[4].Operands[0].(semantic.StringOperand); string(tj.Value) != "Hello" {
		t.Fatalf("Tj text mismatch: %q", tj.Value)
	}
}

func TestBuilder_UnknownFontFallsBackToDefault(t *testing.T) {
	b := NewBuilder()
	b.NewPage(100, 100).DrawText("x", 0, 0, TextOptions{Font: "missing"}).Finish()
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build doc: %v", err)
	}
	if _, ok := doc.Pages[0].Resources.Fonts["F1"]; !ok {
		t.Fatalf("default font not used: %+v", doc.Pages[0].Resources.Fonts)
	}
	if got := b.MeasureText("Hello", "missing", 10); got != b.MeasureText("Hello", "F1", 10) {
		t.Fatalf("MeasureText should use the default face")
	}
}

func TestBuilder_DrawShapesAndImages(t *testing.T) {
	b := NewBuilder()
	img := &semantic.Image{
		Width:            2,
		Height:           1,
		ColorSpace:       "DeviceGray",
		BitsPerComponent: 8,
		Data:             []byte{0x00, 0xFF},
	}
	b.NewPage(100, 100).
		DrawRectangle(10, 20, 30, 40, RectOptions{Fill: true, Stroke: true, FillColor: RGB(255, 0, 0), StrokeColor: RGB(0, 0, 255), LineWidth: 2}).
		DrawRectangle(0, 0, 5, 5, RectOptions{Fill: true, FillColor: RGB(0, 0, 0), Opacity: 0.9}).
		DrawLine(0, 0, 5, 5, LineOptions{StrokeColor: RGB(0, 255, 0), LineWidth: 1.5}).
		DrawImage(img, 5, 5, 0, 0).
		Finish()

	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build doc: %v", err)
	}
	page := doc.Pages[0]
	counts := map[string]int{}
	for _, op := range page.Contents[0].Operations {
		counts[op.Operator]++
	}
	if counts["re"] != 2 || counts["Do"] != 1 || counts["gs"] != 1 || counts["B"] != 1 || counts["f"] != 1 {
		t.Fatalf("unexpected operator counts: %v", counts)
	}
	if counts["q"] != counts["Q"] {
		t.Fatalf("unbalanced graphics state: %v", counts)
	}
	if len(page.Resources.XObjects) != 1 || page.Resources.XObjects["Im1"] != img {
		t.Fatalf("expected image registered in resources, got %+v", page.Resources.XObjects)
	}
	gs, ok := page.Resources.ExtGStates["GS1"]
	if !ok || gs.FillAlpha != 0.9 {
		t.Fatalf("opacity state missing: %+v", page.Resources.ExtGStates)
	}
}

func TestBuilder_BlackIsExplicit(t *testing.T) {
	b := NewBuilder()
	b.NewPage(10, 10).DrawText("a", 0, 0, TextOptions{Color: RGB(0, 0, 0)}).Finish()
	doc, _ := b.Build()
	found := false
	for _, op := range doc.Pages[0].Contents[0].Operations {
		if op.Operator == "rg" {
			found = true
		}
	}
	if !found {
		t.Fatalf("RGB(0,0,0) should emit a color operator")
	}
}

func TestBuilder_PagesAndInfo(t *testing.T) {
	info := &semantic.DocumentInfo{Title: "Letter"}
	b := NewBuilder().SetLanguage("uz").SetInfo(info)
	b.NewPage(612, 792).Finish()
	b.NewPage(612, 792).Finish()
	if b.PageCount() != 2 {
		t.Fatalf("PageCount = %d", b.PageCount())
	}
	if p := b.Page(1); p == nil || p.Index() != 1 {
		t.Fatalf("Page(1) not addressable")
	}
	if b.Page(2) != nil || b.Page(-1) != nil {
		t.Fatalf("out of range pages should be nil")
	}
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build doc: %v", err)
	}
	if doc.Lang != "uz" || doc.Info != info {
		t.Fatalf("document metadata not propagated: %+v", doc)
	}
}

func TestBuilder_BuildErrors(t *testing.T) {
	if _, err := NewBuilder().Build(); !errors.Is(err, ErrNoPages) {
		t.Fatalf("expected ErrNoPages, got %v", err)
	}
	b := NewBuilder()
	b.NewPage(0, 100)
	if _, err := b.Build(); err == nil {
		t.Fatalf("expected media box error")
	}
}

func TestDecodeLogo(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for i := range src.Pix {
		src.Pix[i] = 0xFF
	}
	src.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 128})
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, src); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	img, err := DecodeLogo(pngBuf.Bytes(), 120, 80)
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	if img.Width != 4 || img.Height != 2 || img.ColorSpace != "DeviceRGB" || img.SMask == nil {
		t.Fatalf("unexpected png image: %+v", img)
	}

	var jpgBuf bytes.Buffer
	if err := jpeg.Encode(&jpgBuf, src, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	img, err = DecodeLogo(jpgBuf.Bytes(), 120, 80)
	if err != nil {
		t.Fatalf("jpeg: %v", err)
	}
	if img.Filter != "DCTDecode" || !bytes.Equal(img.Data, jpgBuf.Bytes()) {
		t.Fatalf("jpeg should pass through, got filter %q", img.Filter)
	}

	if _, err := DecodeLogo([]byte(`<?xml version="1.0"?><svg/>`), 120, 80); !errors.Is(err, ErrVectorImage) {
		t.Fatalf("svg: got %v", err)
	}
	if _, err := DecodeLogo([]byte("GIF89a"), 120, 80); !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("gif: got %v", err)
	}
	if _, err := DecodeLogo(nil, 120, 80); !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("empty: got %v", err)
	}
}

func TestDecodeLogoDownscales(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1000, 500))
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	img, err := DecodeLogo(buf.Bytes(), 120, 80)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Width != 480 || img.Height != 240 {
		t.Fatalf("downscaled to %dx%d, want 480x240", img.Width, img.Height)
	}
}
