package fonts

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/wudi/letterkit/observability"
)

// errNotSubsettable marks fonts that are embedded whole: CFF outlines, or
// scripts whose shaping reaches glyphs that were never encoded.
var errNotSubsettable = errors.New("font cannot be subset")

// Subsetter is implemented by faces whose embedded program can be reduced to
// the glyphs a document actually shows.
type Subsetter interface {
	Subset() error
}

// SubsetAll subsets every face that supports it. A face that cannot be subset
// keeps its full program and the reason is logged.
func SubsetAll(log observability.Logger, faces ...Face) {
	log = observability.OrNop(log)
	for _, f := range faces {
		s, ok := f.(Subsetter)
		if !ok {
			continue
		}
		if err := s.Subset(); err != nil {
			level := log.Warn
			if errors.Is(err, errNotSubsettable) {
				level = log.Debug
			}
			level("font embedded without subsetting",
				observability.String("font", f.Name()),
				observability.Error("error", err))
		}
	}
}

// subsetGlyf keeps the outlines of used glyphs (and the components they
// reference) and empties the rest. Glyph ids are unchanged so Identity-H
// strings and the cmap stay valid; trailing unused glyphs are dropped.
func subsetGlyf(data []byte, used map[int]bool) ([]byte, error) {
	sf, err := readSFNT(data)
	if err != nil {
		return nil, err
	}
	for _, tag := range []string{"glyf", "loca", "head", "maxp", "hmtx", "hhea"} {
		if _, ok := sf.tables[tag]; !ok {
			return nil, fmt.Errorf("%w: no %s table", errNotSubsettable, tag)
		}
	}
	if sf.hasScript("arab") {
		return nil, fmt.Errorf("%w: arabic shaping", errNotSubsettable)
	}

	head := sf.table("head")
	maxp := sf.table("maxp")
	if len(head) < 54 || len(maxp) < 6 {
		return nil, fmt.Errorf("truncated head or maxp")
	}
	longLoca := binary.BigEndian.Uint16(head[50:52]) != 0
	numGlyphs := int(binary.BigEndian.Uint16(maxp[4:6]))

	g := glyphTable{loca: sf.table("loca"), glyf: sf.table("glyf"), long: longLoca, n: numGlyphs}
	keep := g.closure(used)

	last := 0
	for gid := range keep {
		if gid > last {
			last = gid
		}
	}
	kept := last + 1

	glyf, loca := g.rebuild(keep, kept)
	hmtx, err := sf.metrics(kept)
	if err != nil {
		return nil, err
	}

	newHead := append([]byte(nil), head...)
	binary.BigEndian.PutUint16(newHead[50:], 1)
	newMaxp := append([]byte(nil), maxp...)
	binary.BigEndian.PutUint16(newMaxp[4:], uint16(kept))
	hhea := append([]byte(nil), sf.table("hhea")...)
	if len(hhea) >= 36 {
		binary.BigEndian.PutUint16(hhea[34:], uint16(kept))
	}

	out := sfntWriter{}
	out.add("head", newHead)
	out.add("maxp", newMaxp)
	out.add("hhea", hhea)
	out.add("hmtx", hmtx)
	out.add("loca", loca)
	out.add("glyf", glyf)
	for _, tag := range []string{"cmap", "name", "OS/2", "post", "cvt ", "fpgm", "prep", "gasp"} {
		if t := sf.table(tag); t != nil {
			out.add(tag, t)
		}
	}
	return out.bytes(), nil
}

// subsetTag derives the six-letter prefix of a subset font name from the
// glyphs it keeps, so identical documents name their fonts identically.
func subsetTag(used map[int]bool) string {
	gids := make([]int, 0, len(used))
	for gid := range used {
		gids = append(gids, gid)
	}
	sort.Ints(gids)
	h := fnv.New32a()
	var b [2]byte
	for _, gid := range gids {
		binary.BigEndian.PutUint16(b[:], uint16(gid))
		h.Write(b[:])
	}
	sum := h.Sum32()
	tag := make([]byte, 6)
	for i := range tag {
		tag[i] = 'A' + byte(sum%26)
		sum /= 26
	}
	return string(tag)
}

type sfntTables struct {
	data   []byte
	tables map[string][]byte
}

func readSFNT(data []byte) (*sfntTables, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("font header truncated")
	}
	n := int(binary.BigEndian.Uint16(data[4:6]))
	s := &sfntTables{data: data, tables: make(map[string][]byte, n)}
	for i := 0; i < n; i++ {
		rec := 12 + 16*i
		if rec+16 > len(data) {
			return nil, fmt.Errorf("table directory truncated")
		}
		tag := string(data[rec : rec+4])
		off := int(binary.BigEndian.Uint32(data[rec+8:]))
		length := int(binary.BigEndian.Uint32(data[rec+12:]))
		if off < 0 || length < 0 || off+length > len(data) {
			return nil, fmt.Errorf("table %q out of bounds", tag)
		}
		s.tables[tag] = data[off : off+length]
	}
	return s, nil
}

func (s *sfntTables) table(tag string) []byte { return s.tables[tag] }

// hasScript reports whether GSUB lists the given OpenType script tag.
func (s *sfntTables) hasScript(script string) bool {
	gsub := s.table("GSUB")
	if len(gsub) < 6 {
		return false
	}
	list := int(binary.BigEndian.Uint16(gsub[4:6]))
	if list+2 > len(gsub) {
		return false
	}
	count := int(binary.BigEndian.Uint16(gsub[list:]))
	for i := 0; i < count; i++ {
		rec := list + 2 + 6*i
		if rec+4 > len(gsub) {
			break
		}
		if string(gsub[rec:rec+4]) == script {
			return true
		}
	}
	return false
}

// metrics rebuilds hmtx with an explicit advance for each of the first n glyphs.
func (s *sfntTables) metrics(n int) ([]byte, error) {
	hhea, hmtx := s.table("hhea"), s.table("hmtx")
	if len(hhea) < 36 {
		return nil, fmt.Errorf("truncated hhea")
	}
	long := int(binary.BigEndian.Uint16(hhea[34:36]))
	if long == 0 || long*4 > len(hmtx) {
		return nil, fmt.Errorf("invalid hmtx")
	}
	out := make([]byte, 4*n)
	lastAdv := hmtx[(long-1)*4 : (long-1)*4+2]
	for gid := 0; gid < n; gid++ {
		rec := out[gid*4:]
		if gid < long {
			copy(rec, hmtx[gid*4:gid*4+4])
			continue
		}
		copy(rec, lastAdv)
		if lsb := long*4 + (gid-long)*2; lsb+2 <= len(hmtx) {
			copy(rec[2:4], hmtx[lsb:lsb+2])
		}
	}
	return out, nil
}

type glyphTable struct {
	loca, glyf []byte
	long       bool
	n          int
}

// span returns the byte range of gid in glyf; start == end for empty glyphs.
func (g glyphTable) span(gid int) (int, int) {
	var start, end int
	if g.long {
		if (gid+2)*4 > len(g.loca) {
			return 0, 0
		}
		start = int(binary.BigEndian.Uint32(g.loca[gid*4:]))
		end = int(binary.BigEndian.Uint32(g.loca[(gid+1)*4:]))
	} else {
		if (gid+2)*2 > len(g.loca) {
			return 0, 0
		}
		start = int(binary.BigEndian.Uint16(g.loca[gid*2:])) * 2
		end = int(binary.BigEndian.Uint16(g.loca[(gid+1)*2:])) * 2
	}
	if start >= end || end > len(g.glyf) {
		return 0, 0
	}
	return start, end
}

// closure adds .notdef and every component of a composite glyph to used.
func (g glyphTable) closure(used map[int]bool) map[int]bool {
	keep := map[int]bool{0: true}
	queue := []int{0}
	for gid := range used {
		if gid > 0 && gid < g.n && !keep[gid] {
			keep[gid] = true
			queue = append(queue, gid)
		}
	}
	for len(queue) > 0 {
		gid := queue[0]
		queue = queue[1:]
		start, end := g.span(gid)
		if end-start < 10 || int16(binary.BigEndian.Uint16(g.glyf[start:])) >= 0 {
			continue
		}
		for off := start + 10; off+4 <= end; {
			flags := binary.BigEndian.Uint16(g.glyf[off:])
			comp := int(binary.BigEndian.Uint16(g.glyf[off+2:]))
			if comp < g.n && !keep[comp] {
				keep[comp] = true
				queue = append(queue, comp)
			}
			off += 4 + componentArgs(flags)
			if flags&0x0020 == 0 {
				break
			}
		}
	}
	return keep
}

// componentArgs is the size of the arguments and transform that follow a
// composite glyph component header.
func componentArgs(flags uint16) int {
	n := 2
	if flags&0x0001 != 0 {
		n = 4
	}
	switch {
	case flags&0x0008 != 0:
		n += 2
	case flags&0x0040 != 0:
		n += 4
	case flags&0x0080 != 0:
		n += 8
	}
	return n
}

// rebuild returns glyf and long-format loca for the first n glyphs, keeping
// outlines only for glyphs in keep.
func (g glyphTable) rebuild(keep map[int]bool, n int) (glyf, loca []byte) {
	var gb bytes.Buffer
	loca = make([]byte, 4*(n+1))
	for gid := 0; gid < n; gid++ {
		binary.BigEndian.PutUint32(loca[gid*4:], uint32(gb.Len()))
		if !keep[gid] {
			continue
		}
		start, end := g.span(gid)
		gb.Write(g.glyf[start:end])
		for gb.Len()%4 != 0 {
			gb.WriteByte(0)
		}
	}
	binary.BigEndian.PutUint32(loca[n*4:], uint32(gb.Len()))
	return gb.Bytes(), loca
}

type sfntWriter struct {
	tags []string
	data map[string][]byte
}

func (w *sfntWriter) add(tag string, data []byte) {
	if w.data == nil {
		w.data = map[string][]byte{}
	}
	if _, ok := w.data[tag]; !ok {
		w.tags = append(w.tags, tag)
	}
	w.data[tag] = data
}

func (w *sfntWriter) bytes() []byte {
	sort.Strings(w.tags)
	n := len(w.tags)
	sel := 0
	for 1<<(sel+1) <= n {
		sel++
	}
	searchRange := (1 << sel) * 16

	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, []uint16{1, 0, uint16(n), uint16(searchRange), uint16(sel), uint16(n*16 - searchRange)})
	offset := 12 + 16*n
	headOffset := -1
	for _, tag := range w.tags {
		data := w.data[tag]
		if tag == "head" {
			binary.BigEndian.PutUint32(data[8:], 0)
			headOffset = offset
		}
		buf.WriteString(tag)
		binary.Write(&buf, binary.BigEndian, []uint32{checksum(data), uint32(offset), uint32(len(data))})
		offset += pad4(len(data))
	}
	for _, tag := range w.tags {
		data := w.data[tag]
		buf.Write(data)
		buf.Write(make([]byte, pad4(len(data))-len(data)))
	}
	out := buf.Bytes()
	if headOffset >= 0 {
		binary.BigEndian.PutUint32(out[headOffset+8:], 0xB1B0AFBA-checksum(out))
	}
	return out
}

func pad4(n int) int { return (n + 3) &^ 3 }

func checksum(data []byte) uint32 {
	var sum uint32
	for i := 0; i < len(data); i += 4 {
		var word [4]byte
		copy(word[:], data[i:])
		sum += binary.BigEndian.Uint32(word[:])
	}
	return sum
}
