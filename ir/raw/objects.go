package raw

import "sort"

// NameObj is a PDF name such as /Type.
type NameObj struct{ Val string }

func (n NameObj) Type() string  { return "name" }
func (n NameObj) Value() string { return n.Val }

// NumberObj holds either an integer or a real.
type NumberObj struct {
	I     int64
	F     float64
	IsInt bool
}

func (n NumberObj) Type() string { return "number" }
func (n NumberObj) Float() float64 {
	if n.IsInt {
		return float64(n.I)
	}
	return n.F
}

// BoolObj is a PDF boolean.
type BoolObj struct{ V bool }

func (b BoolObj) Type() string { return "boolean" }

// NullObj is the PDF null object.
type NullObj struct{}

func (NullObj) Type() string { return "null" }

// StringObj is a PDF string; Hex selects <...> syntax over (...).
type StringObj struct {
	Bytes []byte
	Hex   bool
}

func (s StringObj) Type() string { return "string" }

// ArrayObj is an ordered PDF array.
type ArrayObj struct{ Items []Object }

func (a *ArrayObj) Type() string    { return "array" }
func (a *ArrayObj) Len() int        { return len(a.Items) }
func (a *ArrayObj) Append(o Object) { a.Items = append(a.Items, o) }

// DictObj is a PDF dictionary. Keys serialize in sorted order so output is stable.
type DictObj struct{ KV map[string]Object }

func (d *DictObj) Type() string { return "dict" }

func (d *DictObj) Get(key string) (Object, bool) {
	o, ok := d.KV[key]
	return o, ok
}

func (d *DictObj) Set(key string, value Object) *DictObj {
	if d.KV == nil {
		d.KV = make(map[string]Object)
	}
	d.KV[key] = value
	return d
}

func (d *DictObj) Keys() []string {
	keys := make([]string, 0, len(d.KV))
	for k := range d.KV {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StreamObj pairs a dictionary with (already encoded) data. /Length is filled in by the writer.
type StreamObj struct {
	Dict *DictObj
	Data []byte
}

func (s *StreamObj) Type() string { return "stream" }

// RefObj points at an indirect object.
type RefObj struct{ R ObjectRef }

func (r RefObj) Type() string { return "ref" }

// Helpers
func Name(v string) NameObj                            { return NameObj{Val: v} }
func Int(i int64) NumberObj                            { return NumberObj{I: i, IsInt: true} }
func Real(f float64) NumberObj                         { return NumberObj{F: f} }
func Bool(v bool) BoolObj                              { return BoolObj{V: v} }
func Str(b []byte) StringObj                           { return StringObj{Bytes: b} }
func HexStr(b []byte) StringObj                        { return StringObj{Bytes: b, Hex: true} }
func Array(items ...Object) *ArrayObj                  { return &ArrayObj{Items: items} }
func Dict() *DictObj                                   { return &DictObj{KV: make(map[string]Object)} }
func NewStream(dict *DictObj, data []byte) *StreamObj  { return &StreamObj{Dict: dict, Data: data} }
func Ref(ref ObjectRef) RefObj                         { return RefObj{R: ref} }
