package merge

import (
	"bytes"
	"encoding/xml"
	"strconv"

	"github.com/tsawler/docstamp/docx"
)

// PageBreak is the paragraph placed between consecutive records.
const PageBreak = `<w:p><w:r><w:br w:type="page"/></w:r></w:p>`

// rootNamespaces are always declared on the output root, in this order.
var rootNamespaces = []docx.Namespace{
	{Prefix: "w", URI: "http://schemas.openxmlformats.org/wordprocessingml/2006/main"},
	{Prefix: "r", URI: "http://schemas.openxmlformats.org/officeDocument/2006/relationships"},
	{Prefix: "wp", URI: "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"},
	{Prefix: "w14", URI: "http://schemas.microsoft.com/office/word/2010/wordml"},
	{Prefix: "w15", URI: "http://schemas.microsoft.com/office/word/2012/wordml"},
	{Prefix: "mc", URI: "http://schemas.openxmlformats.org/markup-compatibility/2006"},
}

var rootIgnorable = []string{"w14", "w15"}

// PageGeometry holds the page size and margins of the output section, in
// twentieths of a point.
type PageGeometry struct {
	Width, Height            int
	Top, Right, Bottom, Left int
	Header, Footer, Gutter   int
	ColumnSpace              int
	LinePitch                int
}

// DefaultGeometry returns US Letter with one-inch margins.
func DefaultGeometry() PageGeometry {
	return PageGeometry{
		Width:       12240,
		Height:      15840,
		Top:         1440,
		Right:       1440,
		Bottom:      1440,
		Left:        1440,
		Header:      720,
		Footer:      720,
		Gutter:      0,
		ColumnSpace: 720,
		LinePitch:   360,
	}
}

// Compose builds the main document part from record bodies in order,
// separated by page breaks, closed by a single section that carries the
// given header and footer references.
func Compose(bodies []*docx.Body, refs docx.SectionRefs, geom PageGeometry) (string, error) {
	if len(bodies) == 0 {
		return "", ErrEmptyMergeSet
	}

	namespaces, ignorable := collectDeclarations(bodies)

	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<w:document`)
	for _, ns := range namespaces {
		b.WriteString("\n  xmlns:" + ns.Prefix + `="`)
		xml.EscapeText(&b, []byte(ns.URI))
		b.WriteString(`"`)
	}
	b.WriteString("\n  mc:Ignorable=\"")
	for i, prefix := range ignorable {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(prefix)
	}
	b.WriteString("\">\n  <w:body>\n")

	for i, body := range bodies {
		if i > 0 {
			b.WriteString("    " + PageBreak + "\n")
		}
		b.WriteString("    ")
		b.WriteString(body.Content)
		b.WriteString("\n")
	}

	writeSectPr(&b, refs, geom)
	b.WriteString("  </w:body>\n</w:document>")
	return b.String(), nil
}

// collectDeclarations merges the fixed root declarations with those of the
// source roots. The first declaration of a prefix wins. Ignorable prefixes
// are kept only when declared.
func collectDeclarations(bodies []*docx.Body) ([]docx.Namespace, []string) {
	namespaces := append([]docx.Namespace(nil), rootNamespaces...)
	declared := make(map[string]bool, len(namespaces))
	for _, ns := range namespaces {
		declared[ns.Prefix] = true
	}

	for _, body := range bodies {
		for _, ns := range body.Namespaces {
			if ns.Prefix == "" || declared[ns.Prefix] {
				continue
			}
			declared[ns.Prefix] = true
			namespaces = append(namespaces, ns)
		}
	}

	ignorable := append([]string(nil), rootIgnorable...)
	seen := map[string]bool{"w14": true, "w15": true}
	for _, body := range bodies {
		for _, prefix := range body.Ignorable {
			if seen[prefix] || !declared[prefix] {
				continue
			}
			seen[prefix] = true
			ignorable = append(ignorable, prefix)
		}
	}
	return namespaces, ignorable
}

func writeSectPr(b *bytes.Buffer, refs docx.SectionRefs, geom PageGeometry) {
	b.WriteString("    <w:sectPr>\n")
	for _, kind := range []docx.RefKind{docx.HeaderRef, docx.FooterRef} {
		for _, ref := range refs.OfKind(kind) {
			b.WriteString("      <w:" + string(kind) + `Reference w:type="`)
			xml.EscapeText(b, []byte(ref.Slot))
			b.WriteString(`" r:id="`)
			xml.EscapeText(b, []byte(ref.RelID))
			b.WriteString("\"/>\n")
		}
	}

	itoa := strconv.Itoa
	b.WriteString(`      <w:pgSz w:w="` + itoa(geom.Width) + `" w:h="` + itoa(geom.Height) + "\"/>\n")
	b.WriteString(`      <w:pgMar w:top="` + itoa(geom.Top) + `" w:right="` + itoa(geom.Right) +
		`" w:bottom="` + itoa(geom.Bottom) + `" w:left="` + itoa(geom.Left) +
		`" w:header="` + itoa(geom.Header) + `" w:footer="` + itoa(geom.Footer) +
		`" w:gutter="` + itoa(geom.Gutter) + "\"/>\n")
	b.WriteString(`      <w:cols w:space="` + itoa(geom.ColumnSpace) + "\"/>\n")
	if refs.TitlePage {
		b.WriteString("      <w:titlePg/>\n")
	}
	b.WriteString(`      <w:docGrid w:linePitch="` + itoa(geom.LinePitch) + "\"/>\n")
	b.WriteString("    </w:sectPr>\n")
}
