package raw

import "fmt"

// ObjectRef uniquely identifies an indirect PDF object.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Object is the base interface for all raw PDF objects the writer emits.
type Object interface {
	Type() string
}

// Document is the flat object table handed to the serializer.
type Document struct {
	Objects map[ObjectRef]Object
	Root    ObjectRef
	Info    *ObjectRef
	ID      [2][]byte
	Version string // e.g., "1.7"

	next int
}

// NewDocument returns an empty document with the given header version.
func NewDocument(version string) *Document {
	return &Document{Objects: make(map[ObjectRef]Object), Version: version}
}

// Alloc reserves the next object number.
func (d *Document) Alloc() ObjectRef {
	d.next++
	return ObjectRef{Num: d.next}
}

// Add stores obj under a freshly allocated reference.
func (d *Document) Add(obj Object) ObjectRef {
	ref := d.Alloc()
	d.Objects[ref] = obj
	return ref
}

// Set stores obj under an already allocated reference.
func (d *Document) Set(ref ObjectRef, obj Object) {
	d.Objects[ref] = obj
}
