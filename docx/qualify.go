package docx

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"
)

const nsXML = "http://www.w3.org/XML/1998/namespace"

// wellKnownPrefixes are the prefixes Word itself uses, tried before a
// generated one when a namespace has no prefix in the source.
var wellKnownPrefixes = map[string]string{
	nsW:  "w",
	nsR:  "r",
	nsMC: "mc",

	"http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing": "wp",
	"http://schemas.openxmlformats.org/drawingml/2006/main":                  "a",
	"http://schemas.openxmlformats.org/drawingml/2006/picture":               "pic",
	"http://schemas.microsoft.com/office/word/2010/wordml":                   "w14",
	"http://schemas.microsoft.com/office/word/2012/wordml":                   "w15",
	"http://schemas.microsoft.com/office/word/2010/wordprocessingShape":      "wps",
	"http://schemas.microsoft.com/office/word/2010/wordprocessingGroup":      "wpg",
	"http://schemas.openxmlformats.org/officeDocument/2006/math":             "m",
	"urn:schemas-microsoft-com:vml":                                          "v",
	"urn:schemas-microsoft-com:office:office":                                "o",
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", `"`, "&quot;",
		"\t", "&#x9;", "\n", "&#xA;", "\r", "&#xD;")
)

// prefixTable assigns one prefix to every namespace a fragment uses.
type prefixTable struct {
	byURI      map[string]string
	taken      map[string]bool
	namespaces []Namespace
	next       int
}

func newPrefixTable(namespaces []Namespace) *prefixTable {
	pt := &prefixTable{
		byURI: make(map[string]string),
		taken: map[string]bool{"xml": true, "xmlns": true},
	}
	for _, ns := range namespaces {
		pt.bind(ns.Prefix, ns.URI)
	}
	return pt
}

// bind records prefix for uri unless either is already assigned.
func (pt *prefixTable) bind(prefix, uri string) {
	if prefix == "" || pt.taken[prefix] {
		return
	}
	if _, ok := pt.byURI[uri]; ok {
		return
	}
	pt.taken[prefix] = true
	pt.byURI[uri] = prefix
	pt.namespaces = append(pt.namespaces, Namespace{Prefix: prefix, URI: uri})
}

func (pt *prefixTable) prefix(uri string) string {
	if p, ok := pt.byURI[uri]; ok {
		return p
	}
	p, ok := wellKnownPrefixes[uri]
	for !ok || pt.taken[p] {
		pt.next++
		p, ok = "ns"+strconv.Itoa(pt.next), true
	}
	pt.bind(p, uri)
	return p
}

func (pt *prefixTable) name(n xml.Name) string {
	switch {
	case n.Space == "":
		return n.Local
	case n.Space == nsXML:
		return "xml:" + n.Local
	case !strings.Contains(n.Space, ":"):
		// unbound prefix, left as written
		return n.Space + ":" + n.Local
	}
	return pt.prefix(n.Space) + ":" + n.Local
}

// qualifyFragment rewrites a body fragment so every element and attribute
// name carries a prefix. Names in defaultNS, or in a default namespace
// declared inside the fragment, get the prefix the fragment already uses
// for that namespace, a well-known one, or a generated one. Namespace
// declarations inside the fragment are dropped; the returned list holds
// every binding the rewritten fragment needs.
func qualifyFragment(content string, namespaces []Namespace, defaultNS string) (string, []Namespace, error) {
	var open strings.Builder
	open.WriteString("<fragment")
	if defaultNS != "" {
		open.WriteString(` xmlns="` + attrEscaper.Replace(defaultNS) + `"`)
	}
	for _, ns := range namespaces {
		open.WriteString(" xmlns:" + ns.Prefix + `="` + attrEscaper.Replace(ns.URI) + `"`)
	}
	open.WriteString(">")
	wrapped := open.String() + content + "</fragment>"

	pt := newPrefixTable(namespaces)
	d := xml.NewDecoder(strings.NewReader(wrapped))

	var (
		out         strings.Builder
		selfClosing []bool
		depth       int
	)
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				continue
			}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" {
					pt.bind(a.Name.Local, a.Value)
				}
			}
			out.WriteString("<" + pt.name(t.Name))
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
					continue
				}
				out.WriteString(" " + pt.name(a.Name) + `="` + attrEscaper.Replace(a.Value) + `"`)
			}
			off := int(d.InputOffset())
			empty := off >= 2 && wrapped[off-2:off] == "/>"
			selfClosing = append(selfClosing, empty)
			if empty {
				out.WriteString("/>")
			} else {
				out.WriteString(">")
			}
		case xml.EndElement:
			depth--
			if depth == 0 {
				continue
			}
			empty := selfClosing[len(selfClosing)-1]
			selfClosing = selfClosing[:len(selfClosing)-1]
			if !empty {
				out.WriteString("</" + pt.name(t.Name) + ">")
			}
		case xml.CharData:
			if depth > 0 {
				out.WriteString(textEscaper.Replace(string(t)))
			}
		case xml.Comment:
			out.WriteString("<!--" + string(t) + "-->")
		case xml.ProcInst:
			out.WriteString("<?" + t.Target + " " + string(t.Inst) + "?>")
		}
	}
	return out.String(), pt.namespaces, nil
}
