package writer

import (
	"bytes"
	"compress/zlib"
	"context"
	"io"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/wudi/letterkit/builder"
	"github.com/wudi/letterkit/fonts"
	"github.com/wudi/letterkit/ir/raw"
	"github.com/wudi/letterkit/ir/semantic"
)

func sampleDoc(t *testing.T) *semantic.Document {
	t.Helper()
	b := builder.NewBuilder()
	b.SetInfo(&semantic.DocumentInfo{
		Title:        "Ma'lumotnoma",
		Author:       "Aliyev Vali",
		Producer:     "letterkit",
		CreationDate: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
	}).SetLanguage("uz")
	b.NewPage(612, 792).
		DrawText("Hello (world)", 48, 700, builder.TextOptions{FontSize: 12}).
		DrawRectangle(48, 600, 100, 3, builder.RectOptions{Fill: true, FillColor: builder.RGB(26, 46, 122), Opacity: 0.9}).
		Finish()
	b.NewPage(612, 792).
		DrawLine(48, 54, 564, 54, builder.LineOptions{LineWidth: 0.8}).
		Finish()
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build doc: %v", err)
	}
	return doc
}

func TestWriteStructure(t *testing.T) {
	var buf bytes.Buffer
	if err := New().Write(context.Background(), sampleDoc(t), &buf, Config{}); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "%PDF-1.7\n") {
		t.Fatalf("missing header: %q", out[:16])
	}
	if !strings.HasSuffix(out, "%%EOF\n") {
		t.Fatalf("missing EOF marker")
	}
	for _, want := range []string{"/Type /Catalog", "/Count 2", "/BaseFont /Helvetica", "(Hello \\(world\\)) Tj", "/ca 0.9", "/Lang (uz)", "/CreationDate (D:20240501093000Z)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q", want)
		}
	}
	checkXRef(t, buf.Bytes())
}

// checkXRef verifies that every in-use xref entry points at its object header.
func checkXRef(t *testing.T, data []byte) {
	t.Helper()
	m := regexp.MustCompile(`startxref\n(\d+)\n`).FindSubmatch(data)
	if m == nil {
		t.Fatalf("startxref missing")
	}
	start, _ := strconv.Atoi(string(m[1]))
	if !bytes.HasPrefix(data[start:], []byte("xref\n0 ")) {
		t.Fatalf("startxref does not point at xref table")
	}
	lines := strings.Split(string(data[start:]), "\n")
	count, _ := strconv.Atoi(strings.Fields(lines[1])[1])
	for i := 1; i < count; i++ {
		entry := lines[2+i]
		if !strings.HasSuffix(entry, " n ") {
			continue
		}
		off, _ := strconv.Atoi(entry[:10])
		want := strconv.Itoa(i) + " 0 obj"
		if !bytes.HasPrefix(data[off:], []byte(want)) {
			t.Fatalf("xref entry %d points at %q", i, data[off:off+10])
		}
	}
}

func TestWriteDeterministic(t *testing.T) {
	cfg := Config{Deterministic: true, Compression: 6}
	var a, b bytes.Buffer
	if err := New().Write(context.Background(), sampleDoc(t), &a, cfg); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := New().Write(context.Background(), sampleDoc(t), &b, cfg); err != nil {
		t.Fatalf("write b: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("deterministic output differs")
	}
	if !strings.Contains(a.String(), "/ID [<") {
		t.Fatalf("trailer ID missing")
	}
}

func TestWriteCompressedContent(t *testing.T) {
	var buf bytes.Buffer
	if err := New().Write(context.Background(), sampleDoc(t), &buf, Config{Compression: 9}); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	data := buf.Bytes()
	idx := bytes.Index(data, []byte("/Filter /FlateDecode"))
	if idx < 0 {
		t.Fatalf("no compressed stream")
	}
	s := bytes.Index(data[idx:], []byte("stream\n")) + idx + len("stream\n")
	e := bytes.Index(data[s:], []byte("\nendstream")) + s
	r, err := zlib.NewReader(bytes.NewReader(data[s:e]))
	if err != nil {
		t.Fatalf("zlib: %v", err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("inflate: %v", err)
	}
	if !bytes.Contains(plain, []byte("Tj")) && !bytes.Contains(plain, []byte(" re\n")) {
		t.Fatalf("inflated stream has no drawing operators: %q", plain)
	}
}

func TestWriteEmbeddedFont(t *testing.T) {
	face, err := fonts.LoadTrueType("GoRegular", goregular.TTF)
	if err != nil {
		t.Fatalf("load font: %v", err)
	}
	b := builder.NewBuilder().RegisterFace("F2", face)
	b.NewPage(200, 200).DrawText("Qo'shimcha", 10, 10, builder.TextOptions{Font: "F2", FontSize: 11}).Finish()
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var buf bytes.Buffer
	if err := New().Write(context.Background(), doc, &buf, Config{}); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"/Subtype /Type0", "/Encoding /Identity-H", "/Subtype /CIDFontType2", "/FontFile2", "/ToUnicode", "beginbfchar", "/CIDToGIDMap /Identity", "/StemV 80"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q", want)
		}
	}
	checkXRef(t, buf.Bytes())
}

type countingInterceptor struct{ objects int }

func (c *countingInterceptor) AfterWrite(raw.ObjectRef, raw.Object, int64) { c.objects++ }

func TestWriteInterceptor(t *testing.T) {
	ic := &countingInterceptor{}
	w := (&WriterBuilder{}).WithInterceptor(ic).Build()
	if err := w.Write(context.Background(), sampleDoc(t), io.Discard, Config{}); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	// catalog, pages, 2×(page, content), font, info
	if ic.objects != 8 {
		t.Fatalf("interceptor saw %d objects, want 8", ic.objects)
	}
}

func TestWriteErrors(t *testing.T) {
	if err := New().Write(context.Background(), &semantic.Document{}, io.Discard, Config{}); err == nil {
		t.Fatalf("expected error for empty document")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := New().Write(ctx, sampleDoc(t), io.Discard, Config{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[float64]string{
		0:          "0",
		-0.00001:   "0",
		12:         "12",
		743.5:      "743.5",
		1.0 / 3:    "0.3333",
		123456789:  "123456789",
		-48.123456: "-48.1235",
	}
	for in, want := range tests {
		if got := formatNumber(in); got != want {
			t.Errorf("formatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestTextString(t *testing.T) {
	if s := textString("plain"); s.Hex || string(s.Bytes) != "plain" {
		t.Fatalf("ascii should stay literal: %+v", s)
	}
	s := textString("Qoʻshimcha")
	if !s.Hex || s.Bytes[0] != 0xFE || s.Bytes[1] != 0xFF {
		t.Fatalf("non-ascii should be UTF-16BE with BOM: %x", s.Bytes)
	}
}
