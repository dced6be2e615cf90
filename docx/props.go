package docx

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/tsawler/docstamp/opc"
)

// Property part names.
const (
	StylesPath    = "word/styles.xml"
	CorePropsPath = "docProps/core.xml"
	AppPropsPath  = "docProps/app.xml"
)

// Metadata holds the document properties stored under docProps/.
type Metadata struct {
	Title       string
	Author      string
	Subject     string
	Keywords    []string
	Creator     string // producing application
	Description string
}

// Empty reports whether no property is set.
func (m Metadata) Empty() bool {
	return m.Title == "" && m.Author == "" && m.Subject == "" &&
		len(m.Keywords) == 0 && m.Creator == "" && m.Description == ""
}

type stylesXML struct {
	XMLName xml.Name      `xml:"styles"`
	Styles  []styleDefXML `xml:"style"`
}

type styleDefXML struct {
	StyleID string            `xml:"styleId,attr"`
	Name    styleNameXML      `xml:"name"`
	PPr     paragraphPropsXML `xml:"pPr"`
}

type styleNameXML struct {
	Val string `xml:"val,attr"`
}

type corePropertiesXML struct {
	XMLName     xml.Name `xml:"coreProperties"`
	Title       string   `xml:"title"`
	Subject     string   `xml:"subject"`
	Creator     string   `xml:"creator"`
	Keywords    string   `xml:"keywords"`
	Description string   `xml:"description"`
}

type appPropertiesXML struct {
	XMLName     xml.Name `xml:"Properties"`
	Application string   `xml:"Application"`
}

// styleInfo is what the reader keeps of one style definition.
type styleInfo struct {
	name  string
	level int // 1-9 for heading styles, 0 otherwise
}

// styleIndex maps lower-cased style ids to their definitions.
type styleIndex map[string]styleInfo

func loadStyles(pkg *opc.Package) styleIndex {
	idx := make(styleIndex)
	var styles stylesXML
	if err := decodePart(pkg, StylesPath, &styles); err != nil {
		return idx
	}
	for _, s := range styles.Styles {
		idx[strings.ToLower(s.StyleID)] = styleInfo{
			name:  s.Name.Val,
			level: headingLevel(s.StyleID, s.Name.Val, s.PPr.OutlineLvl.Val),
		}
	}
	return idx
}

// lookup falls back to the built-in heading ids for styles the package
// does not define.
func (idx styleIndex) lookup(id string) styleInfo {
	if info, ok := idx[strings.ToLower(id)]; ok {
		return info
	}
	return styleInfo{level: headingLevel(id, "", "")}
}

// headingLevel classifies a style. Built-in ids (Title, Heading1-9) come
// first, then the style's outline level, then a name mentioning "heading".
func headingLevel(id, name, outline string) int {
	id = strings.ToLower(id)
	if id == "title" {
		return 1
	}
	if n, ok := strings.CutPrefix(id, "heading"); ok && len(n) == 1 && n[0] >= '1' && n[0] <= '9' {
		return int(n[0] - '0')
	}
	if lvl := outlineLevel(outline); lvl >= 0 {
		return lvl + 1
	}
	if strings.Contains(strings.ToLower(name), "heading") {
		return 1
	}
	return 0
}

// outlineLevel parses a 0-based w:outlineLvl value. Level 9 is body text,
// so it and anything unparseable give -1.
func outlineLevel(val string) int {
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil || n < 0 || n > 8 {
		return -1
	}
	return n
}

func loadMetadata(pkg *opc.Package) Metadata {
	var meta Metadata

	var core corePropertiesXML
	if decodePart(pkg, CorePropsPath, &core) == nil {
		meta.Title = strings.TrimSpace(core.Title)
		meta.Author = strings.TrimSpace(core.Creator)
		meta.Subject = strings.TrimSpace(core.Subject)
		meta.Description = strings.TrimSpace(core.Description)
		meta.Keywords = splitKeywords(core.Keywords)
	}

	var app appPropertiesXML
	if decodePart(pkg, AppPropsPath, &app) == nil {
		meta.Creator = strings.TrimSpace(app.Application)
	}
	return meta
}

// splitKeywords splits on commas or semicolons, dropping empty entries.
func splitKeywords(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	keywords := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			keywords = append(keywords, f)
		}
	}
	if len(keywords) == 0 {
		return nil
	}
	return keywords
}
