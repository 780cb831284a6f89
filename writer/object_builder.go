package writer

import (
	"fmt"
	"sort"

	"github.com/wudi/letterkit/ir/raw"
	"github.com/wudi/letterkit/ir/semantic"
)

type objectBuilder struct {
	doc *semantic.Document
	cfg Config
	out *raw.Document

	fontRefs  map[*semantic.Font]raw.ObjectRef
	imageRefs map[*semantic.Image]raw.ObjectRef
}

func newObjectBuilder(doc *semantic.Document, cfg Config) *objectBuilder {
	return &objectBuilder{
		doc:       doc,
		cfg:       cfg,
		out:       raw.NewDocument(pdfVersion(cfg)),
		fontRefs:  make(map[*semantic.Font]raw.ObjectRef),
		imageRefs: make(map[*semantic.Image]raw.ObjectRef),
	}
}

func (b *objectBuilder) Build() (*raw.Document, error) {
	catalogRef := b.out.Alloc()
	pagesRef := b.out.Alloc()
	b.out.Root = catalogRef

	kids := raw.Array()
	for i, p := range b.doc.Pages {
		ref, err := b.page(p, pagesRef)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		kids.Append(raw.Ref(ref))
	}
	b.out.Set(pagesRef, raw.Dict().
		Set("Type", raw.Name("Pages")).
		Set("Count", raw.Int(int64(len(b.doc.Pages)))).
		Set("Kids", kids))

	catalog := raw.Dict().
		Set("Type", raw.Name("Catalog")).
		Set("Pages", raw.Ref(pagesRef))
	if b.doc.Lang != "" {
		catalog.Set("Lang", textString(b.doc.Lang))
	}
	b.out.Set(catalogRef, catalog)

	if info := b.info(); info != nil {
		ref := b.out.Add(info)
		b.out.Info = &ref
	}
	b.out.ID = fileID(b.out, b.cfg)
	return b.out, nil
}

func (b *objectBuilder) page(p *semantic.Page, parent raw.ObjectRef) (raw.ObjectRef, error) {
	ref := b.out.Alloc()
	dict := raw.Dict().
		Set("Type", raw.Name("Page")).
		Set("Parent", raw.Ref(parent)).
		Set("MediaBox", rectArray(p.MediaBox))

	res, err := b.resources(p.Resources)
	if err != nil {
		return ref, err
	}
	dict.Set("Resources", res)

	var content []byte
	for _, cs := range p.Contents {
		content = append(content, serializeContentStream(cs)...)
	}
	stream, err := b.stream(raw.Dict(), content)
	if err != nil {
		return ref, err
	}
	dict.Set("Contents", raw.Ref(b.out.Add(stream)))
	b.out.Set(ref, dict)
	return ref, nil
}

func (b *objectBuilder) resources(res *semantic.Resources) (*raw.DictObj, error) {
	dict := raw.Dict()
	dict.Set("ProcSet", raw.Array(raw.Name("PDF"), raw.Name("Text"), raw.Name("ImageB"), raw.Name("ImageC")))
	if res == nil {
		return dict, nil
	}
	if len(res.Fonts) > 0 {
		fonts := raw.Dict()
		for _, name := range sortedKeys(res.Fonts) {
			ref, err := b.font(res.Fonts[name])
			if err != nil {
				return nil, fmt.Errorf("font %s: %w", name, err)
			}
			fonts.Set(name, raw.Ref(ref))
		}
		dict.Set("Font", fonts)
	}
	if len(res.XObjects) > 0 {
		xobjects := raw.Dict()
		for _, name := range sortedKeys(res.XObjects) {
			ref, err := b.image(res.XObjects[name])
			if err != nil {
				return nil, fmt.Errorf("image %s: %w", name, err)
			}
			xobjects.Set(name, raw.Ref(ref))
		}
		dict.Set("XObject", xobjects)
	}
	if len(res.ExtGStates) > 0 {
		states := raw.Dict()
		for _, name := range sortedKeys(res.ExtGStates) {
			gs := res.ExtGStates[name]
			states.Set(name, raw.Dict().
				Set("Type", raw.Name("ExtGState")).
				Set("ca", raw.Real(gs.FillAlpha)).
				Set("CA", raw.Real(gs.StrokeAlpha)))
		}
		dict.Set("ExtGState", states)
	}
	return dict, nil
}

func (b *objectBuilder) font(f *semantic.Font) (raw.ObjectRef, error) {
	if f == nil {
		return raw.ObjectRef{}, fmt.Errorf("nil font")
	}
	if ref, ok := b.fontRefs[f]; ok {
		return ref, nil
	}
	dict := raw.Dict().
		Set("Type", raw.Name("Font")).
		Set("Subtype", raw.Name(f.Subtype)).
		Set("BaseFont", raw.Name(f.BaseFont))

	switch f.Subtype {
	case "Type1":
		if f.Encoding != "" {
			dict.Set("Encoding", raw.Name(f.Encoding))
		}
		if len(f.Widths) > 0 {
			first, last, arr := encodeWidths(f.Widths)
			dict.Set("FirstChar", raw.Int(int64(first)))
			dict.Set("LastChar", raw.Int(int64(last)))
			dict.Set("Widths", arr)
		}
	case "Type0":
		cid := f.DescendantFont
		if cid == nil {
			return raw.ObjectRef{}, fmt.Errorf("type0 font %s has no descendant", f.BaseFont)
		}
		dict.Set("Encoding", raw.Name(f.Encoding))
		descRef, err := b.cidFont(cid)
		if err != nil {
			return raw.ObjectRef{}, err
		}
		dict.Set("DescendantFonts", raw.Array(raw.Ref(descRef)))
		if cmap := buildToUnicodeCMap(f); cmap != nil {
			stream, err := b.stream(raw.Dict(), cmap)
			if err != nil {
				return raw.ObjectRef{}, err
			}
			dict.Set("ToUnicode", raw.Ref(b.out.Add(stream)))
		}
	default:
		return raw.ObjectRef{}, fmt.Errorf("unsupported font subtype %q", f.Subtype)
	}
	ref := b.out.Add(dict)
	b.fontRefs[f] = ref
	return ref, nil
}

func (b *objectBuilder) cidFont(cid *semantic.CIDFont) (raw.ObjectRef, error) {
	dict := raw.Dict().
		Set("Type", raw.Name("Font")).
		Set("Subtype", raw.Name(cid.Subtype)).
		Set("BaseFont", raw.Name(cid.BaseFont)).
		Set("CIDSystemInfo", raw.Dict().
			Set("Registry", raw.Str([]byte(cid.CIDSystemInfo.Registry))).
			Set("Ordering", raw.Str([]byte(cid.CIDSystemInfo.Ordering))).
			Set("Supplement", raw.Int(int64(cid.CIDSystemInfo.Supplement)))).
		Set("CIDToGIDMap", raw.Name("Identity"))
	if cid.DW > 0 {
		dict.Set("DW", raw.Int(int64(cid.DW)))
	}
	if len(cid.W) > 0 {
		dict.Set("W", encodeCIDWidths(cid.W))
	}
	if cid.Descriptor != nil {
		ref, err := b.descriptor(cid.Descriptor)
		if err != nil {
			return raw.ObjectRef{}, err
		}
		dict.Set("FontDescriptor", raw.Ref(ref))
	}
	return b.out.Add(dict), nil
}

func (b *objectBuilder) descriptor(fd *semantic.FontDescriptor) (raw.ObjectRef, error) {
	dict := raw.Dict().
		Set("Type", raw.Name("FontDescriptor")).
		Set("FontName", raw.Name(fd.FontName)).
		Set("Flags", raw.Int(int64(fd.Flags))).
		Set("ItalicAngle", raw.Real(fd.ItalicAngle)).
		Set("Ascent", raw.Real(fd.Ascent)).
		Set("Descent", raw.Real(fd.Descent)).
		Set("CapHeight", raw.Real(fd.CapHeight)).
		Set("StemV", raw.Int(int64(fd.StemV))).
		Set("FontBBox", raw.Array(
			raw.Real(fd.FontBBox[0]), raw.Real(fd.FontBBox[1]),
			raw.Real(fd.FontBBox[2]), raw.Real(fd.FontBBox[3])))
	if len(fd.FontFile) > 0 {
		key := fd.FontFileType
		if key == "" {
			key = "FontFile2"
		}
		sd := raw.Dict().Set("Length1", raw.Int(int64(len(fd.FontFile))))
		stream, err := b.stream(sd, fd.FontFile)
		if err != nil {
			return raw.ObjectRef{}, err
		}
		dict.Set(key, raw.Ref(b.out.Add(stream)))
	}
	return b.out.Add(dict), nil
}

func (b *objectBuilder) image(img *semantic.Image) (raw.ObjectRef, error) {
	if img == nil {
		return raw.ObjectRef{}, fmt.Errorf("nil image")
	}
	if ref, ok := b.imageRefs[img]; ok {
		return ref, nil
	}
	if img.Width <= 0 || img.Height <= 0 {
		return raw.ObjectRef{}, fmt.Errorf("invalid image size %dx%d", img.Width, img.Height)
	}
	bpc := img.BitsPerComponent
	if bpc == 0 {
		bpc = 8
	}
	cs := img.ColorSpace
	if cs == "" {
		cs = "DeviceRGB"
	}
	dict := raw.Dict().
		Set("Type", raw.Name("XObject")).
		Set("Subtype", raw.Name("Image")).
		Set("Width", raw.Int(int64(img.Width))).
		Set("Height", raw.Int(int64(img.Height))).
		Set("ColorSpace", raw.Name(cs)).
		Set("BitsPerComponent", raw.Int(int64(bpc)))
	if img.Interpolate {
		dict.Set("Interpolate", raw.Bool(true))
	}
	if img.SMask != nil {
		ref, err := b.image(img.SMask)
		if err != nil {
			return raw.ObjectRef{}, fmt.Errorf("smask: %w", err)
		}
		dict.Set("SMask", raw.Ref(ref))
	}
	var stream *raw.StreamObj
	if img.Filter != "" {
		dict.Set("Filter", raw.Name(img.Filter))
		stream = raw.NewStream(dict, img.Data)
	} else {
		var err error
		if stream, err = b.stream(dict, img.Data); err != nil {
			return raw.ObjectRef{}, err
		}
	}
	ref := b.out.Add(stream)
	b.imageRefs[img] = ref
	return ref, nil
}

// stream wraps data, flate-compressing it when the config asks for it.
func (b *objectBuilder) stream(dict *raw.DictObj, data []byte) (*raw.StreamObj, error) {
	if b.cfg.Compression != 0 && len(data) > 0 {
		enc, err := flateEncode(data, b.cfg.Compression)
		if err != nil {
			return nil, fmt.Errorf("flate: %w", err)
		}
		dict.Set("Filter", raw.Name("FlateDecode"))
		return raw.NewStream(dict, enc), nil
	}
	return raw.NewStream(dict, data), nil
}

func (b *objectBuilder) info() *raw.DictObj {
	in := b.doc.Info
	if in == nil {
		return nil
	}
	dict := raw.Dict()
	set := func(key, val string) {
		if val != "" {
			dict.Set(key, textString(val))
		}
	}
	set("Title", in.Title)
	set("Author", in.Author)
	set("Subject", in.Subject)
	set("Creator", in.Creator)
	set("Producer", in.Producer)
	if len(in.Keywords) > 0 {
		set("Keywords", joinKeywords(in.Keywords))
	}
	if !in.CreationDate.IsZero() {
		dict.Set("CreationDate", raw.Str([]byte(pdfDate(in.CreationDate))))
	}
	if len(dict.KV) == 0 {
		return nil
	}
	return dict
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
