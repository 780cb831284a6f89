package semantic

import "time"

// Document is the semantic representation of a generated PDF.
type Document struct {
	Pages []*Page
	Info  *DocumentInfo
	Lang  string
}

// Page models a single PDF page.
type Page struct {
	Index     int
	MediaBox  Rectangle
	Resources *Resources
	Contents  []ContentStream
}

// ContentStream is a sequence of operations on a page.
type ContentStream struct {
	Operations []Operation
}

// Operation represents a PDF operator and operands.
type Operation struct {
	Operator string
	Operands []Operand
}

// Operand is a type-safe operand value.
type Operand interface {
	operand()
	Type() string
}

type NumberOperand struct{ Value float64 }

func (NumberOperand) operand()     {}
func (NumberOperand) Type() string { return "number" }

type NameOperand struct{ Value string }

func (NameOperand) operand()     {}
func (NameOperand) Type() string { return "name" }

// StringOperand carries already-encoded bytes; Hex is set for two-byte CID text.
type StringOperand struct {
	Value []byte
	Hex   bool
}

func (StringOperand) operand()     {}
func (StringOperand) Type() string { return "string" }

type ArrayOperand struct{ Values []Operand }

func (ArrayOperand) operand()     {}
func (ArrayOperand) Type() string { return "array" }

// Resources holds the named resources referenced from a page's content.
type Resources struct {
	Fonts      map[string]*Font
	XObjects   map[string]*Image
	ExtGStates map[string]ExtGState
}

// ExtGState carries the graphics-state parameters the builder uses.
type ExtGState struct {
	FillAlpha   float64
	StrokeAlpha float64
}

// Font represents a font resource.
type Font struct {
	Subtype        string // Type1 or Type0
	BaseFont       string
	Encoding       string
	Widths         map[int]int // character code -> width (simple fonts)
	ToUnicode      map[int][]rune
	CIDSystemInfo  *CIDSystemInfo
	DescendantFont *CIDFont
	Descriptor     *FontDescriptor
}

// CIDSystemInfo describes the registry/ordering of a CID font.
type CIDSystemInfo struct {
	Registry   string
	Ordering   string
	Supplement int
}

// CIDFont is the descendant of a Type0 font.
type CIDFont struct {
	Subtype       string // CIDFontType2
	BaseFont      string
	CIDSystemInfo CIDSystemInfo
	DW            int
	W             map[int]int // CID -> width
	Descriptor    *FontDescriptor
}

// FontDescriptor carries metrics and font file embedding details.
type FontDescriptor struct {
	FontName     string
	Flags        int
	ItalicAngle  float64
	Ascent       float64
	Descent      float64
	CapHeight    float64
	StemV        int
	FontBBox     [4]float64
	FontFile     []byte
	FontFileType string // FontFile2
}

// Image is an image XObject. Data is raw samples unless Filter names an
// encoding the data is already in (DCTDecode for pass-through JPEG).
type Image struct {
	Width            int
	Height           int
	ColorSpace       string // DeviceRGB, DeviceGray
	BitsPerComponent int
	Data             []byte
	Filter           string
	Interpolate      bool
	SMask            *Image
}

// Rectangle is a PDF rectangle in user space.
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

// DocumentInfo feeds the trailer /Info dictionary.
type DocumentInfo struct {
	Title        string
	Author       string
	Subject      string
	Creator      string
	Producer     string
	Keywords     []string
	CreationDate time.Time
}
