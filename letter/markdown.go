package letter

import (
	"strings"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// ApplyMarkdown fills base from a Markdown draft and returns the result.
//
// The first level-one heading becomes the title. Every deeper heading opens a
// section and the paragraphs and list items that follow form its body. A
// section headed with an attachments caption (in any supported language) is
// read as the attachment list, one item per entry, "name — description" or
// "name: description". A section headed with a notes caption becomes the
// notes. HTML blocks contribute their text only. Parts the draft does not
// contain are kept from base.
func ApplyMarkdown(base Payload, src []byte) Payload {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var (
		title       string
		sections    []Section
		notes       []string
		attachments []Attachment
		current     *Section
		mode        = modeSection
	)
	flush := func() {
		if current != nil {
			current.Body = strings.TrimSpace(current.Body)
			sections = append(sections, *current)
			current = nil
		}
	}
	add := func(block string) {
		block = strings.TrimSpace(block)
		if block == "" {
			return
		}
		switch mode {
		case modeNotes:
			notes = append(notes, block)
		case modeAttachments:
			attachments = append(attachments, parseAttachment(block))
		default:
			if current == nil {
				current = &Section{ID: uuid.NewString()}
			}
			if current.Body != "" {
				current.Body += "\n\n"
			}
			current.Body += block
		}
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch n := n.(type) {
		case *ast.Heading:
			heading := strings.TrimSpace(inlineText(n, src))
			if n.Level == 1 && title == "" {
				title = heading
				continue
			}
			flush()
			mode = headingMode(heading)
			if mode == modeSection {
				current = &Section{ID: uuid.NewString(), Heading: heading}
			}
		case *ast.HTMLBlock:
			add(htmlText(n, src))
		case *ast.ThematicBreak:
			continue
		case *ast.List:
			for item := n.FirstChild(); item != nil; item = item.NextSibling() {
				add(blockText(item, src))
			}
		default:
			add(blockText(n, src))
		}
	}
	flush()

	out := base
	if title != "" {
		out.Meta.Title = title
	}
	if len(sections) > 0 {
		out.Sections = sections
	}
	if len(notes) > 0 {
		out.Notes = strings.Join(notes, "\n\n")
	}
	if len(attachments) > 0 {
		out.Attachments = attachments
	}
	return out
}

type markdownMode int

const (
	modeSection markdownMode = iota
	modeNotes
	modeAttachments
)

func headingMode(heading string) markdownMode {
	h := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(heading), ":"))
	for _, l := range labelsByLanguage {
		switch h {
		case strings.ToLower(strings.TrimSuffix(l.Notes, ":")):
			return modeNotes
		case strings.ToLower(strings.TrimSuffix(l.Attachments, ":")):
			return modeAttachments
		}
	}
	return modeSection
}

func parseAttachment(s string) Attachment {
	a := Attachment{ID: uuid.NewString(), Name: s}
	for _, sep := range []string{" — ", " - ", ": "} {
		if name, desc, ok := strings.Cut(s, sep); ok {
			a.Name, a.Description = strings.TrimSpace(name), strings.TrimSpace(desc)
			break
		}
	}
	return a
}

// blockText returns the text of a block node, one line per child block.
func blockText(n ast.Node, src []byte) string {
	first := n.FirstChild()
	if first == nil || first.Type() == ast.TypeInline {
		return inlineText(n, src)
	}
	var parts []string
	for c := first; c != nil; c = c.NextSibling() {
		if s := blockText(c, src); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// inlineText flattens the inline children of n to plain text. Soft line
// breaks become spaces and hard breaks newlines.
func inlineText(n ast.Node, src []byte) string {
	var sb strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				sb.Write(t.Segment.Value(src))
				switch {
				case t.HardLineBreak():
					sb.WriteByte('\n')
				case t.SoftLineBreak():
					sb.WriteByte(' ')
				}
			case *ast.String:
				sb.Write(t.Value)
			case *ast.AutoLink:
				sb.Write(t.URL(src))
			case *ast.RawHTML:
			default:
				walk(c)
			}
		}
	}
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 && n.FirstChild() == nil {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			sb.Write(seg.Value(src))
		}
		return sb.String()
	}
	walk(n)
	return sb.String()
}

var htmlBreaks = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "td": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// htmlText returns the visible text of an HTML block with whitespace collapsed.
func htmlText(n *ast.HTMLBlock, src []byte) string {
	var raw strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		raw.Write(seg.Value(src))
	}
	if n.HasClosure() {
		raw.Write(n.ClosureLine.Value(src))
	}
	doc, err := html.Parse(strings.NewReader(raw.String()))
	if err != nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(h *html.Node) {
		if h.Type == html.ElementNode && (h.Data == "script" || h.Data == "style") {
			return
		}
		if h.Type == html.TextNode {
			sb.WriteString(h.Data)
		}
		for c := h.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if h.Type == html.ElementNode && htmlBreaks[h.Data] {
			sb.WriteByte(' ')
		}
	}
	walk(doc)
	return strings.Join(strings.Fields(sb.String()), " ")
}
