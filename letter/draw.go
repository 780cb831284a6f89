package letter

import (
	"fmt"
	"strings"

	"github.com/wudi/letterkit/builder"
	"github.com/wudi/letterkit/ir/semantic"
	"github.com/wudi/letterkit/layout"
	"github.com/wudi/letterkit/qr"
)

// Face names registered with the builder.
const (
	fontBody    = "Body"
	fontHeading = "Heading"
)

// Letterhead box.
const (
	logoPlaceholderWidth = 88.0
	logoMaxWidth         = 120.0
	logoMaxHeight        = 80.0
	columnGap            = 20.0
	contactColumnWidth   = 220.0
	maxHeaderContacts    = 4
	companySize          = 16.0
	taglineSize          = 11.0
	headerContactSize    = 10.0
	headerContactStep    = 13.0
	barHeight            = 3.0
	barOffset            = 6.0
)

// Body typography.
const (
	numberSize        = 11.0
	recipientSize     = 12.0
	recipientMetaSize = 10.0
	titleSize         = 14.0
	sectionSize       = 11.5
	bodySize          = 11.0
	attachmentGap     = 6.0
)

// Signature block.
const (
	qrSize        = 64.0
	qrBorderWidth = 1.0
)

// Footer.
const (
	footerRuleWidth   = 0.8
	footerContactSize = 8.0
	footerContactStep = 9.0
	footerBrandSize   = 9.0
	footerFloor       = 12.0
)

type palette struct {
	primary    builder.Color
	accent     builder.Color
	background builder.Color
	ink        builder.Color
	muted      builder.Color
}

// composer draws one letter onto a layout engine.
type composer struct {
	e          *layout.Engine
	b          builder.PDFBuilder
	geo        layout.Geometry
	meta       Meta
	payload    Payload
	letterhead Letterhead
	contacts   []string
	pal        palette
	labels     Labels
	logo       *semantic.Image
	today      string
}

func (c *composer) measure(s, font string, size float64) float64 {
	return c.b.MeasureText(s, font, size)
}

func (c *composer) wrap(s, font string, size, width float64) []string {
	return layout.Wrap(s, func(line string) float64 { return c.measure(line, font, size) }, width)
}

func textStyle(font string, size float64, color builder.Color) builder.TextOptions {
	return builder.TextOptions{Font: font, FontSize: size, Color: color}
}

// compose runs every block in reading order and stamps the footers. It
// returns the number of pages.
func (c *composer) compose() int {
	c.e.Start()
	c.numberAndDate()
	c.recipient()
	c.title()
	c.body()
	c.attachments()
	c.notes()
	c.signature()
	total := c.e.Finish()
	for i := 0; i < total; i++ {
		c.footer(c.b.Page(i), i, total)
	}
	return total
}

// drawLetterhead is the engine's first-page header.
func (c *composer) drawLetterhead(page builder.PageBuilder) {
	g := c.geo
	topY := g.Height - g.Margin
	barY := g.Height - g.HeaderReserved - barOffset

	boxW, boxH := logoPlaceholderWidth, logoMaxHeight
	if c.logo != nil && c.logo.Width > 0 && c.logo.Height > 0 {
		w, h := float64(c.logo.Width), float64(c.logo.Height)
		scale := min(logoMaxWidth/w, logoMaxHeight/h, 1)
		rw, rh := w*scale, h*scale
		boxW, boxH = max(rw, logoPlaceholderWidth), rh
		page.DrawImage(c.logo, g.Margin, topY-rh, rw, rh)
	} else {
		page.DrawRectangle(g.Margin, topY-logoMaxHeight, logoPlaceholderWidth, logoMaxHeight, builder.RectOptions{
			FillColor:   c.pal.background,
			StrokeColor: c.pal.accent,
			LineWidth:   1,
			Fill:        true,
			Stroke:      true,
		})
		page.DrawText(Placeholder, g.Margin+16, topY-logoMaxHeight/2-4, textStyle(fontHeading, 12, c.pal.accent))
	}

	contactX := g.Width - g.Margin - contactColumnWidth
	detailX := g.Margin + boxW + columnGap
	detailWidth := max(contactX-detailX-columnGap, 120)
	floor := barY + barHeight + 4

	detailY := topY - companySize
	for _, line := range c.wrap(c.letterhead.Company, fontHeading, companySize, detailWidth) {
		if detailY < floor {
			break
		}
		page.DrawText(line, detailX, detailY, textStyle(fontHeading, companySize, c.pal.ink))
		detailY -= companySize + 2
	}
	for _, line := range c.wrap(c.letterhead.Tagline, fontBody, taglineSize, detailWidth) {
		if detailY < floor {
			break
		}
		page.DrawText(line, detailX, detailY, textStyle(fontBody, taglineSize, c.pal.muted))
		detailY -= taglineSize + 3
	}

	rowBottom := max(min(topY-boxH, detailY-12), floor)
	contactY := topY - 10
	contacts := c.contacts
	if len(contacts) > maxHeaderContacts {
		contacts = contacts[:maxHeaderContacts]
	}
contactLoop:
	for _, contact := range contacts {
		for _, line := range c.wrap(contact, fontBody, headerContactSize, contactColumnWidth) {
			if contactY <= rowBottom+8 {
				break contactLoop
			}
			w := c.measure(line, fontBody, headerContactSize)
			page.DrawText(line, contactX+max(contactColumnWidth-w, 0), contactY, textStyle(fontBody, headerContactSize, c.pal.muted))
			contactY -= headerContactStep
		}
	}

	page.DrawRectangle(g.Margin, barY, g.MaxWidth(), barHeight, builder.RectOptions{
		FillColor: c.pal.primary,
		Fill:      true,
		Opacity:   0.9,
	})
}

func (c *composer) numberAndDate() {
	c.e.EnsureSpace(32)
	g, y := c.geo, c.e.Cursor()
	ref := strings.TrimSpace(c.meta.Reference)
	if ref == "" {
		ref = "—"
	}
	date := strings.TrimSpace(c.meta.DueDate)
	if date == "" {
		date = c.today
	}
	dateLabel := c.labels.Date + " " + date
	w := c.measure(dateLabel, fontBody, numberSize)
	c.e.Page().
		DrawText(c.labels.Number+" "+ref, g.Margin, y, textStyle(fontHeading, numberSize, c.pal.ink)).
		DrawText(dateLabel, g.Width-g.Margin-w, y, textStyle(fontBody, numberSize, c.pal.ink))
	c.e.Advance(40)
}

func (c *composer) recipient() {
	if c.meta.RecipientName != "" {
		c.e.EnsureSpace(30)
		c.e.Page().DrawText(c.meta.RecipientName, c.geo.Margin, c.e.Cursor(), textStyle(fontHeading, recipientSize, c.pal.ink))
		c.e.Advance(18)
	}
	var parts []string
	for _, s := range []string{c.meta.RecipientRole, c.meta.Organization} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return
	}
	c.e.EnsureSpace(recipientMetaSize + c.geo.LineGap)
	c.e.Page().DrawText(strings.Join(parts, " · "), c.geo.Margin, c.e.Cursor(), textStyle(fontBody, recipientMetaSize, c.pal.muted))
	c.e.Advance(20)
}

// heading draws a wrapped heading. needed is reserved before the first line
// so a heading is not left alone at the bottom of a page.
func (c *composer) heading(s string, size, needed, after float64) {
	for i, line := range c.wrap(s, fontHeading, size, c.geo.MaxWidth()) {
		if i > 0 {
			c.e.Advance(size + c.geo.LineGap)
			needed = size + c.geo.LineGap
		}
		c.e.EnsureSpace(needed)
		c.e.Page().DrawText(line, c.geo.Margin, c.e.Cursor(), textStyle(fontHeading, size, c.pal.ink))
	}
	c.e.Advance(after)
}

func (c *composer) title() {
	if c.meta.Title == "" {
		return
	}
	c.heading(c.meta.Title, titleSize, 26, 24)
}

func (c *composer) body() {
	for _, s := range c.payload.Sections {
		if s.Heading != "" {
			c.heading(s.Heading, sectionSize, 20, 16)
		}
		if s.Body != "" {
			c.e.Paragraph(s.Body, layout.Style{
				Font:     fontBody,
				Size:     bodySize,
				Color:    c.pal.ink,
				Justify:  true,
				GapAfter: c.geo.ParagraphGap,
			})
		}
	}
}

func (c *composer) attachments() {
	items := c.payload.Attachments
	if len(items) == 0 {
		return
	}
	c.e.EnsureSpace(float64(len(items))*18 + 30)
	c.e.Page().DrawText(c.labels.Attachments, c.geo.Margin, c.e.Cursor(), textStyle(fontHeading, bodySize, c.pal.ink))
	c.e.Advance(18)
	for i, a := range items {
		line := fmt.Sprintf("%d. %s", i+1, a.Name)
		if a.Description != "" {
			line += " — " + a.Description
		}
		c.e.Paragraph(line, layout.Style{
			Font:     fontBody,
			Size:     bodySize,
			Color:    c.pal.ink,
			GapAfter: attachmentGap,
		})
	}
}

func (c *composer) notes() {
	if strings.TrimSpace(c.payload.Notes) == "" {
		return
	}
	c.e.EnsureSpace(40)
	c.e.Page().DrawText(c.labels.Notes, c.geo.Margin, c.e.Cursor(), textStyle(fontHeading, bodySize, c.pal.ink))
	c.e.Advance(18)
	c.e.Paragraph(c.payload.Notes, layout.Style{
		Font:     fontBody,
		Size:     bodySize,
		Color:    c.pal.muted,
		Justify:  true,
		GapAfter: c.geo.ParagraphGap,
	})
}

// qrSeed picks the stamp seed: a non-blank reference, then the company, both
// hashed as written. qr.Generate maps a blank seed to its default.
func qrSeed(meta Meta, lh Letterhead) string {
	if strings.TrimSpace(meta.Reference) != "" {
		return meta.Reference
	}
	return lh.Company
}

func (c *composer) signature() {
	textHeight := 20.0
	if c.meta.SignatoryRole != "" {
		textHeight += 16
	}
	if c.meta.SignatoryName != "" {
		textHeight += 18
	}
	blockHeight := max(qrSize+24, textHeight+24)
	c.e.EnsureSpace(blockHeight)

	g, page := c.geo, c.e.Page()
	startY := c.e.Cursor()
	drawStamp(page, qr.Generate(qrSeed(c.meta, c.letterhead), qr.DefaultDimension), g.Width-g.Margin-qrSize, startY, qrSize, c.pal.ink)

	page.DrawText(c.meta.Organization, g.Margin, startY, textStyle(fontHeading, recipientSize, c.pal.ink))
	y := startY - 20
	if c.meta.SignatoryRole != "" {
		page.DrawText(c.meta.SignatoryRole, g.Margin, y, textStyle(fontBody, recipientMetaSize, c.pal.muted))
		y -= 16
	}
	if c.meta.SignatoryName != "" {
		page.DrawText(c.meta.SignatoryName, g.Margin, y, textStyle(fontHeading, bodySize, c.pal.ink))
	}
	c.e.SetCursor(startY - blockHeight)
}

// drawStamp draws m with its top-left corner at (x, topY), one rectangle
// per horizontal run of filled modules, and a border around it.
func drawStamp(page builder.PageBuilder, m qr.Matrix, x, topY, size float64, color builder.Color) {
	n := m.Size()
	if n == 0 {
		return
	}
	module := size / float64(n)
	for _, run := range m.Runs() {
		page.DrawRectangle(x+float64(run.Col)*module, topY-float64(run.Row+1)*module, float64(run.Len)*module, module,
			builder.RectOptions{FillColor: color, Fill: true})
	}
	page.DrawRectangle(x, topY-size, size, size, builder.RectOptions{
		StrokeColor: color,
		LineWidth:   qrBorderWidth,
		Stroke:      true,
	})
}

// footer stamps the running footer: a rule, the contact lines on the left
// and the brand signature with a page marker on the right.
func (c *composer) footer(page builder.PageBuilder, index, total int) {
	if page == nil {
		return
	}
	g := c.geo
	ruleY := g.FooterHeight + 14
	page.DrawLine(g.Margin, ruleY, g.Width-g.Margin, ruleY, builder.LineOptions{
		StrokeColor: c.pal.muted,
		LineWidth:   footerRuleWidth,
	})

	brand := footerSignature(c.letterhead.Company, c.meta.Language)
	rightW := c.measure(brand, fontBody, footerBrandSize)
	right := g.Width - g.Margin
	page.DrawText(brand, right-rightW, ruleY-10, textStyle(fontBody, footerBrandSize, c.pal.muted))
	if total > 1 {
		marker := fmt.Sprintf("%d / %d", index+1, total)
		w := c.measure(marker, fontBody, footerBrandSize)
		page.DrawText(marker, right-w, ruleY-21, textStyle(fontBody, footerBrandSize, c.pal.muted))
		rightW = max(rightW, w)
	}

	column := max(g.MaxWidth()-rightW-16, 200)
	y := ruleY - 10
contactLoop:
	for _, contact := range c.contacts {
		for _, line := range c.wrap(contact, fontBody, footerContactSize, column) {
			if y < footerFloor {
				break contactLoop
			}
			page.DrawText(line, g.Margin, y, textStyle(fontBody, footerContactSize, c.pal.muted))
			y -= footerContactStep
		}
	}
}

func footerSignature(company, lang string) string {
	lang = strings.ToUpper(strings.TrimSpace(lang))
	switch {
	case company == "":
		return lang
	case lang == "":
		return company
	}
	return company + " · " + lang
}
