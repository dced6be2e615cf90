package docx

import "encoding/xml"

// XML namespaces used in DOCX files
const (
	nsW    = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsMC   = "http://schemas.openxmlformats.org/markup-compatibility/2006"
	nsRels = "http://schemas.openxmlformats.org/package/2006/relationships"
)

// Well-known part names.
const (
	DocumentPath     = "word/document.xml"
	DocumentRelsPath = "word/_rels/document.xml.rels"
	MediaPrefix      = "word/media/"
)

// documentXML represents the structure of word/document.xml
type documentXML struct {
	XMLName xml.Name `xml:"document"`
	Body    *bodyXML `xml:"body"`
}

// bodyXML represents the document body.
// Elements keeps paragraphs and tables in document order; SectPr is the
// body-level section properties block, if any.
type bodyXML struct {
	Elements []bodyElement
	SectPr   *sectPrXML
}

// bodyElement represents an element in the document body (paragraph or table).
type bodyElement struct {
	Paragraph *paragraphXML
	Table     *tableXML
}

// UnmarshalXML decodes body children in order. Content controls (w:sdt)
// are transparent: their paragraphs and tables are collected as if they
// were direct children.
func (b *bodyXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				p := &paragraphXML{}
				if err := d.DecodeElement(p, &t); err != nil {
					return err
				}
				b.Elements = append(b.Elements, bodyElement{Paragraph: p})
			case "tbl":
				tbl := &tableXML{}
				if err := d.DecodeElement(tbl, &t); err != nil {
					return err
				}
				b.Elements = append(b.Elements, bodyElement{Table: tbl})
			case "sectPr":
				s := &sectPrXML{}
				if err := d.DecodeElement(s, &t); err != nil {
					return err
				}
				if depth == 0 {
					b.SectPr = s
				}
			case "sdt", "sdtContent":
				depth++
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if depth == 0 && t.Name.Local == start.Name.Local {
				return nil
			}
			depth--
		}
	}
}

// paragraphXML represents a paragraph element (<w:p>).
type paragraphXML struct {
	XMLName    xml.Name          `xml:"p"`
	Properties paragraphPropsXML `xml:"pPr"`
	Runs       []runXML          `xml:"r"`
	Hyperlinks []hyperlinkXML    `xml:"hyperlink"`
}

// paragraphPropsXML represents paragraph properties (<w:pPr>).
type paragraphPropsXML struct {
	Style      styleRefXML   `xml:"pStyle"`
	OutlineLvl outlineLvlXML `xml:"outlineLvl"`
}

// styleRefXML represents a style reference.
type styleRefXML struct {
	Val string `xml:"val,attr"`
}

// outlineLvlXML represents outline level.
type outlineLvlXML struct {
	Val string `xml:"val,attr"`
}

// runXML represents a text run (<w:r>).
type runXML struct {
	XMLName xml.Name     `xml:"r"`
	Text    []textXML    `xml:"t"`
	Tabs    []tabXML     `xml:"tab"`
	Breaks  []breakXML   `xml:"br"`
	Drawing []drawingXML `xml:"drawing"`
}

// textXML represents text content (<w:t>).
type textXML struct {
	XMLName xml.Name `xml:"t"`
	Space   string   `xml:"space,attr"` // preserve
	Value   string   `xml:",chardata"`
}

// tabXML represents a tab character.
type tabXML struct {
	XMLName xml.Name `xml:"tab"`
}

// breakXML represents a break (line or page).
type breakXML struct {
	XMLName xml.Name `xml:"br"`
	Type    string   `xml:"type,attr"` // page, column, textWrapping
}

// drawingXML represents an embedded drawing/image.
type drawingXML struct {
	XMLName xml.Name   `xml:"drawing"`
	Inline  *inlineXML `xml:"inline"`
	Anchor  *inlineXML `xml:"anchor"`
}

// inlineXML represents an inline or anchored image.
type inlineXML struct {
	Blip *blipXML `xml:"graphic>graphicData>pic>blipFill>blip"`
}

// blipXML represents an image reference.
type blipXML struct {
	Embed string `xml:"embed,attr"` // Relationship ID
}

// hyperlinkXML represents a hyperlink.
type hyperlinkXML struct {
	ID   string   `xml:"id,attr"`
	Runs []runXML `xml:"r"`
}

// tableXML represents a table (<w:tbl>).
type tableXML struct {
	XMLName xml.Name      `xml:"tbl"`
	Rows    []tableRowXML `xml:"tr"`
}

// tableRowXML represents a table row (<w:tr>).
type tableRowXML struct {
	XMLName xml.Name       `xml:"tr"`
	Cells   []tableCellXML `xml:"tc"`
}

// tableCellXML represents a table cell (<w:tc>).
type tableCellXML struct {
	XMLName    xml.Name       `xml:"tc"`
	Paragraphs []paragraphXML `xml:"p"`
}

// sectPrXML represents section properties (<w:sectPr>).
type sectPrXML struct {
	HeaderRefs []hdrFtrRefXML `xml:"headerReference"`
	FooterRefs []hdrFtrRefXML `xml:"footerReference"`
	TitlePg    *onOffXML      `xml:"titlePg"`
}

// hdrFtrRefXML represents a header or footer reference.
type hdrFtrRefXML struct {
	Type string `xml:"type,attr"` // default, first, even
	ID   string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
}

// onOffXML represents a toggle element such as <w:titlePg/>.
type onOffXML struct {
	Val string `xml:"val,attr"`
}

// enabled reports whether a toggle element is switched on.
func (o *onOffXML) enabled() bool {
	if o == nil {
		return false
	}
	switch o.Val {
	case "0", "false", "off":
		return false
	}
	return true
}
