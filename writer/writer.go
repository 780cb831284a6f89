package writer

import (
	"context"
	"fmt"
	"io"

	"github.com/wudi/letterkit/ir/raw"
	"github.com/wudi/letterkit/ir/semantic"
)

type PDFVersion string

const PDF17 PDFVersion = "1.7"

// Config controls serialization.
type Config struct {
	Version PDFVersion
	// Compression is the flate level for content, font and image streams.
	// Zero leaves streams uncompressed.
	Compression int
	// Deterministic derives both halves of the trailer /ID from the
	// document so identical input yields identical bytes.
	Deterministic bool
}

// Writer serializes a semantic document to PDF bytes.
type Writer interface {
	Write(ctx context.Context, doc *semantic.Document, w io.Writer, cfg Config) error
}

// Interceptor observes each indirect object as it is written.
type Interceptor interface {
	AfterWrite(ref raw.ObjectRef, obj raw.Object, bytesWritten int64)
}

type WriterBuilder struct{ interceptors []Interceptor }

func (b *WriterBuilder) WithInterceptor(i Interceptor) *WriterBuilder {
	b.interceptors = append(b.interceptors, i)
	return b
}
func (b *WriterBuilder) Build() Writer { return &impl{interceptors: b.interceptors} }

// New returns a Writer without interceptors.
func New() Writer { return &impl{} }

type impl struct{ interceptors []Interceptor }

func (w *impl) Write(ctx context.Context, doc *semantic.Document, out io.Writer, cfg Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc == nil || len(doc.Pages) == 0 {
		return fmt.Errorf("write pdf: document has no pages")
	}
	rdoc, err := newObjectBuilder(doc, cfg).Build()
	if err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return serialize(rdoc, out, w.interceptors)
}
