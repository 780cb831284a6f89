// Package letter composes official letters into PDF documents: letterhead,
// reference line, recipient, body sections, attachments, notes, a signature
// block with a decorative stamp, and a running footer on every page.
package letter

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/wudi/letterkit/builder"
	"github.com/wudi/letterkit/colors"
	"github.com/wudi/letterkit/fonts"
	"github.com/wudi/letterkit/ir/semantic"
	"github.com/wudi/letterkit/layout"
	"github.com/wudi/letterkit/observability"
	"github.com/wudi/letterkit/writer"
)

// DefaultProducer is written to the document info when Options.Producer is empty.
const DefaultProducer = "letterkit"

// mutedRatio is how far the muted text tone is blended toward white.
const mutedRatio = 0.35

// Options configures a Renderer.
type Options struct {
	Logger observability.Logger
	Tracer observability.Tracer
	// Clock supplies the creation date and the date printed when a letter
	// has no due date. Defaults to time.Now.
	Clock func() time.Time
	// Compression is the flate level for content, font and image streams.
	Compression int
	Producer    string
	// Deterministic makes identical requests yield identical bytes.
	Deterministic bool
}

// Renderer turns requests into PDF exports. It holds no per-render state
// and is safe for concurrent use.
type Renderer struct {
	opts   Options
	log    observability.Logger
	tracer observability.Tracer
	writer writer.Writer
}

// NewRenderer returns a Renderer with the given options.
func NewRenderer(opts Options) *Renderer {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Producer == "" {
		opts.Producer = DefaultProducer
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	return &Renderer{
		opts:   opts,
		log:    observability.OrNop(opts.Logger),
		tracer: tracer,
		writer: writer.New(),
	}
}

// Render produces the PDF for req. Asset problems (colors, fonts, logo)
// degrade to built-in fallbacks and are logged; any other failure is
// returned wrapped in ErrExportFailed and no bytes are produced.
func (r *Renderer) Render(ctx context.Context, req Request) (_ *Export, err error) {
	ctx, span := r.tracer.StartSpan(ctx, observability.SpanRender)
	defer func() {
		span.SetError(err)
		span.Finish()
	}()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}

	req = normalize(req)
	doc, pages, err := r.compose(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	span.SetTag("pages", pages)

	_, wspan := r.tracer.StartSpan(ctx, observability.SpanSerialize)
	var buf bytes.Buffer
	err = r.writer.Write(ctx, doc, &buf, writer.Config{
		Version:       writer.PDF17,
		Compression:   r.opts.Compression,
		Deterministic: r.opts.Deterministic,
	})
	wspan.SetError(err)
	wspan.Finish()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	span.SetTag("bytes", buf.Len())

	out := &Export{
		Filename:    Filename(req.Payload.Meta),
		ContentType: ContentTypePDF,
		Data:        buf.Bytes(),
		Pages:       pages,
	}
	r.log.Info("letter rendered",
		observability.String("filename", out.Filename),
		observability.Int("pages", pages),
		observability.Int("bytes", len(out.Data)))
	return out, nil
}

// compose lays the letter out and returns the document model.
func (r *Renderer) compose(ctx context.Context, req Request) (*semantic.Document, int, error) {
	_, aspan := r.tracer.StartSpan(ctx, observability.SpanAssets)
	b := builder.NewBuilder()
	body := fonts.Embed("body-font", req.Fonts.Body, fonts.MustStandard(fonts.Helvetica), r.log)
	heading := fonts.Embed("heading-font", req.Fonts.Heading, fonts.MustStandard(fonts.HelveticaBold), r.log)
	b.RegisterFace(fontBody, body).RegisterFace(fontHeading, heading)
	logo := r.decodeLogo(req.Logo)
	pal := r.resolvePalette(req.Letterhead)
	labels := r.labels(req.Payload.Meta.Language, body, heading)
	aspan.Finish()

	_, lspan := r.tracer.StartSpan(ctx, observability.SpanLayout)
	defer lspan.Finish()

	contacts := NormalizeContacts(req.Letterhead.Contacts)
	if len(contacts) == 0 {
		contacts = append([]string(nil), DefaultContacts...)
	}
	now := r.opts.Clock()
	c := &composer{
		b:          b,
		meta:       req.Payload.Meta,
		payload:    req.Payload,
		letterhead: req.Letterhead,
		contacts:   contacts,
		pal:        pal,
		labels:     labels,
		logo:       logo,
		today:      now.UTC().Format(time.DateOnly),
	}
	c.e = layout.NewEngine(b, layout.WithHeader(c.drawLetterhead))
	c.geo = c.e.Geometry()
	pages := c.compose()
	lspan.SetTag("pages", pages)
	fonts.SubsetAll(r.log, body, heading)

	meta := req.Payload.Meta
	b.SetInfo(&semantic.DocumentInfo{
		Title:        meta.Title,
		Author:       meta.SignatoryName,
		Subject:      meta.Category,
		Keywords:     keywords(meta),
		Creator:      req.Letterhead.Company,
		Producer:     r.opts.Producer,
		CreationDate: now,
	}).SetLanguage(baseLanguage(meta.Language))

	doc, err := b.Build()
	if err != nil {
		return nil, 0, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	return doc, pages, nil
}

func keywords(meta Meta) []string {
	var out []string
	for _, k := range []string{meta.Category, meta.Priority.Label(meta.Language), meta.Reference} {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

func (r *Renderer) decodeLogo(data []byte) *semantic.Image {
	if len(data) == 0 {
		r.log.Debug("no logo supplied, drawing placeholder")
		return nil
	}
	img, err := builder.DecodeLogo(data, logoMaxWidth, logoMaxHeight)
	if err != nil {
		r.log.Warn("logo embed failed, drawing placeholder",
			observability.String("asset", "logo"),
			observability.String("fallback", "placeholder"),
			observability.Int("size", len(data)),
			observability.Error("error", err))
		return nil
	}
	return img
}

func (r *Renderer) resolvePalette(lh Letterhead) palette {
	resolve := func(asset, hex string, fallback colors.RGB) builder.Color {
		c, ok := colors.HexToRGB(hex)
		if !ok {
			r.log.Warn("letterhead color invalid, using fallback",
				observability.String("asset", asset),
				observability.String("value", hex),
				observability.String("fallback", fallback.Hex()))
			c = fallback
		}
		return builder.RGB(c.R, c.G, c.B)
	}
	muted := colors.Resolve(colors.Lighten(lh.TextColor, mutedRatio), colors.FallbackMuted)
	return palette{
		primary:    resolve("primary-color", lh.PrimaryColor, colors.FallbackPrimary),
		accent:     resolve("accent-color", lh.AccentColor, colors.FallbackAccent),
		background: resolve("background-color", lh.BackgroundColor, colors.FallbackPaper),
		ink:        resolve("text-color", lh.TextColor, colors.FallbackInk),
		muted:      builder.RGB(muted.R, muted.G, muted.B),
	}
}

// labels returns the captions for lang, or the default language's when the
// faces lack glyphs for them.
func (r *Renderer) labels(lang string, faces ...fonts.Face) Labels {
	l := LabelsFor(lang)
	for _, f := range faces {
		if !f.Covers(l.text()) {
			r.log.Warn("font cannot show localized labels, using default language",
				observability.String("asset", "labels"),
				observability.String("language", lang),
				observability.String("font", f.Name()),
				observability.String("fallback", DefaultLanguage))
			return labelsByLanguage[DefaultLanguage]
		}
	}
	return l
}

// normalize returns req with every text field in Unicode NFC.
func normalize(req Request) Request {
	n := norm.NFC.String
	m := &req.Payload.Meta
	for _, s := range []*string{
		&m.Title, &m.Category, &m.RecipientName, &m.RecipientRole, &m.Organization,
		&m.Language, &m.DueDate, &m.Reference, &m.SignatoryName, &m.SignatoryRole,
		&req.Payload.Notes, &req.Letterhead.Company, &req.Letterhead.Tagline,
	} {
		*s = n(*s)
	}
	sections := make([]Section, len(req.Payload.Sections))
	for i, s := range req.Payload.Sections {
		sections[i] = Section{ID: s.ID, Heading: n(s.Heading), Body: n(s.Body)}
	}
	req.Payload.Sections = sections
	attachments := make([]Attachment, len(req.Payload.Attachments))
	for i, a := range req.Payload.Attachments {
		attachments[i] = Attachment{ID: a.ID, Name: n(a.Name), Description: n(a.Description)}
	}
	req.Payload.Attachments = attachments
	contacts := make([]string, len(req.Letterhead.Contacts))
	for i, c := range req.Letterhead.Contacts {
		contacts[i] = n(c)
	}
	req.Letterhead.Contacts = contacts
	return req
}
