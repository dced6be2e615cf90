// Package docx provides DOCX (Office Open XML) document parsing: body and
// section extraction for merging, media listing, and plain-text reading.
package docx

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/tsawler/docstamp/opc"
)

// PageBreak is the character Text emits for an explicit page break.
const PageBreak = "\f"

// Reader gives read access to the text, outline and properties of a
// document.
type Reader struct {
	pkg        *opc.Package
	document   *documentXML
	styles     styleIndex
	meta       Metadata
	paragraphs []Paragraph
	blocks     []string
}

// Paragraph is one top-level paragraph of the body.
type Paragraph struct {
	Text      string
	StyleID   string
	StyleName string
	IsHeading bool
	Level     int // heading level (1-9) or 0 for non-headings
}

// Open opens a DOCX file for reading.
func Open(filename string) (*Reader, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	pkg, err := opc.Open(data)
	if err != nil {
		return nil, err
	}
	return NewReader(pkg)
}

// NewReader parses an already opened package. Styles and document
// properties are optional; a package without them reads with built-in
// heading detection and empty metadata.
func NewReader(pkg *opc.Package) (*Reader, error) {
	for _, name := range []string{opc.ContentTypesPath, DocumentPath} {
		if !pkg.Has(name) {
			return nil, fmt.Errorf("missing required part: %s", name)
		}
	}

	doc := &documentXML{}
	if err := decodePart(pkg, DocumentPath, doc); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	r := &Reader{
		pkg:      pkg,
		document: doc,
		styles:   loadStyles(pkg),
		meta:     loadMetadata(pkg),
	}
	if doc.Body != nil {
		r.walk(doc.Body.Elements)
	}
	return r, nil
}

// Package returns the underlying package.
func (r *Reader) Package() *opc.Package {
	return r.pkg
}

// Text returns the body text. Paragraphs are separated by newlines, table
// cells by tabs, and explicit page breaks appear as PageBreak.
func (r *Reader) Text() (string, error) {
	return strings.Join(r.blocks, "\n"), nil
}

// Paragraphs returns the top-level paragraphs in document order.
func (r *Reader) Paragraphs() []Paragraph {
	return r.paragraphs
}

// Headings returns the outline: paragraphs styled or marked as headings.
func (r *Reader) Headings() []Paragraph {
	var headings []Paragraph
	for _, p := range r.paragraphs {
		if p.IsHeading {
			headings = append(headings, p)
		}
	}
	return headings
}

// Metadata returns the document properties.
func (r *Reader) Metadata() Metadata {
	return r.meta
}

// decodePart unmarshals an XML part of pkg into v.
func decodePart(pkg *opc.Package, name string, v any) error {
	text, err := pkg.Text(name)
	if err != nil {
		return err
	}
	return xml.Unmarshal([]byte(text), v)
}

func (r *Reader) walk(elements []bodyElement) {
	for _, el := range elements {
		switch {
		case el.Paragraph != nil:
			p := r.paragraph(*el.Paragraph)
			r.paragraphs = append(r.paragraphs, p)
			r.blocks = append(r.blocks, p.Text)
		case el.Table != nil:
			r.blocks = append(r.blocks, r.tableText(el.Table))
		}
	}
}

// tableText renders a table as tab-separated rows.
func (r *Reader) tableText(tbl *tableXML) string {
	rows := make([]string, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			texts := make([]string, 0, len(cell.Paragraphs))
			for _, p := range cell.Paragraphs {
				texts = append(texts, paragraphText(p))
			}
			cells = append(cells, strings.Join(texts, " "))
		}
		rows = append(rows, strings.Join(cells, "\t"))
	}
	return strings.Join(rows, "\n")
}

// paragraph resolves a paragraph's style. A direct outline level on the
// paragraph wins over the one its style carries.
func (r *Reader) paragraph(p paragraphXML) Paragraph {
	out := Paragraph{
		Text:    paragraphText(p),
		StyleID: p.Properties.Style.Val,
	}

	var style styleInfo
	if out.StyleID != "" {
		style = r.styles.lookup(out.StyleID)
	}
	out.StyleName = style.name
	out.Level = style.level
	if lvl := outlineLevel(p.Properties.OutlineLvl.Val); lvl >= 0 {
		out.Level = lvl + 1
	}
	out.IsHeading = out.Level > 0
	return out
}

// paragraphText concatenates the runs of a paragraph, hyperlinked runs last.
func paragraphText(p paragraphXML) string {
	var b strings.Builder
	for _, run := range p.Runs {
		writeRun(&b, run)
	}
	for _, link := range p.Hyperlinks {
		for _, run := range link.Runs {
			writeRun(&b, run)
		}
	}
	return b.String()
}

func writeRun(b *strings.Builder, run runXML) {
	for _, t := range run.Text {
		b.WriteString(t.Value)
	}
	for range run.Tabs {
		b.WriteByte('\t')
	}
	for _, br := range run.Breaks {
		if br.Type == "page" {
			b.WriteString(PageBreak)
		} else {
			b.WriteByte('\n')
		}
	}
}
