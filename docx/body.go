package docx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/tsawler/docstamp/opc"
)

// ErrMissingBody is returned when a package has no recognizable document body.
var ErrMissingBody = errors.New("missing document body")

// Namespace is a prefix declaration in scope for a document body.
type Namespace struct {
	Prefix string
	URI    string
}

// Body is the flow content of a document body: paragraphs, tables and
// drawings, with the body-level section properties removed.
//
// Namespaces and Ignorable carry the declarations of the source root and
// body elements, so the fragment can be re-rooted without unbound prefixes.
// Content never relies on a default namespace: unprefixed element names
// are rewritten to prefixed ones during extraction.
type Body struct {
	Content    string
	Namespaces []Namespace
	Ignorable  []string
}

// WithContent returns a copy of the body with different content.
func (b *Body) WithContent(content string) *Body {
	return &Body{
		Content:    content,
		Namespaces: append([]Namespace(nil), b.Namespaces...),
		Ignorable:  append([]string(nil), b.Ignorable...),
	}
}

// Patterns used only when the streaming parse fails. They rely on the format
// never nesting a second body inside the first.
var (
	bodyPattern      = regexp.MustCompile(`(?s)<w:body(?:\s[^>]*)?>(.*)</w:body>`)
	rootPattern      = regexp.MustCompile(`(?s)<w:document\b[^>]*>`)
	xmlnsPattern     = regexp.MustCompile(`\bxmlns:([A-Za-z_][\w.\-]*)\s*=\s*"([^"]*)"`)
	ignorablePattern = regexp.MustCompile(`\bmc:Ignorable\s*=\s*"([^"]*)"`)
	sectOpenPattern  = regexp.MustCompile(`<w:sectPr(?:\s[^>]*?)?(/?)>`)
	trailingSectPr   = regexp.MustCompile(`(?s)^<w:sectPr(?:\s[^>]*)?(?:/>|>.*</w:sectPr>)\s*$`)
)

// defaultDeclPattern finds default namespace declarations inside a body.
var defaultDeclPattern = regexp.MustCompile(`\sxmlns\s*=`)

// ExtractBody returns the body of word/document.xml with the trailing
// section properties stripped.
func ExtractBody(pkg *opc.Package) (*Body, error) {
	text, err := pkg.Text(DocumentPath)
	if err != nil {
		if errors.Is(err, opc.ErrPartNotFound) {
			return nil, fmt.Errorf("%w: %s not found", ErrMissingBody, DocumentPath)
		}
		return nil, fmt.Errorf("%w: %v", ErrMissingBody, err)
	}

	body, err := parseBody(text)
	if err == nil {
		return body, nil
	}

	body, ok := matchBody(text)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrMissingBody, err)
	}
	return body, nil
}

// parseBody locates the body with a namespace-aware streaming parse and
// slices it out of the source text by decoder offsets.
func parseBody(text string) (*Body, error) {
	d := xml.NewDecoder(strings.NewReader(text))

	var (
		root, inner scope
		depth       int
		bodyDepth   = -1
		start, end  int64 = -1, -1
		sectStart   int64 = -1
		sectEnd     int64 = -1
		inSect      bool
	)

	for {
		offset := d.InputOffset()
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch {
			case depth == 1:
				root = declarationsOf(t.Attr)
			case depth == 2 && start < 0 && t.Name.Space == nsW && t.Name.Local == "body":
				inner = declarationsOf(t.Attr)
				bodyDepth = depth
				start = d.InputOffset()
			case bodyDepth > 0 && end < 0 && depth == bodyDepth+1 && t.Name.Space == nsW && t.Name.Local == "sectPr":
				sectStart = offset
				inSect = true
			}
		case xml.EndElement:
			switch {
			case inSect && depth == bodyDepth+1:
				sectEnd = d.InputOffset()
				inSect = false
			case depth == bodyDepth && end < 0:
				end = offset
				bodyDepth = -1
			}
			depth--
		}
	}

	if start < 0 || end < 0 {
		return nil, errors.New("no w:body element")
	}

	content := text[start:end]
	if sectStart >= 0 && sectEnd > sectStart && strings.TrimSpace(text[sectEnd:end]) == "" {
		content = text[start:sectStart]
	}

	sc := root.within(inner)
	body := &Body{
		Content:    strings.TrimSpace(content),
		Namespaces: sc.namespaces,
		Ignorable:  sc.ignorable,
	}
	if sc.defaultNS != "" || defaultDeclPattern.MatchString(body.Content) {
		qualified, namespaces, err := qualifyFragment(body.Content, body.Namespaces, sc.defaultNS)
		if err != nil {
			return nil, fmt.Errorf("qualifying body: %w", err)
		}
		body.Content, body.Namespaces = qualified, namespaces
	}
	return body, nil
}

// scope holds the namespace declarations made on one element.
type scope struct {
	namespaces []Namespace
	ignorable  []string
	defaultNS  string
}

// declarationsOf collects prefix declarations, the default namespace and
// ignorable prefixes from an element's attributes.
func declarationsOf(attrs []xml.Attr) scope {
	var sc scope
	for _, a := range attrs {
		switch {
		case a.Name.Space == "xmlns":
			sc.namespaces = append(sc.namespaces, Namespace{Prefix: a.Name.Local, URI: a.Value})
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			sc.defaultNS = a.Value
		case a.Name.Space == nsMC && a.Name.Local == "Ignorable":
			sc.ignorable = strings.Fields(a.Value)
		}
	}
	return sc
}

// within returns the declarations in force inside a child element: the
// child's bindings replace the parent's for the same prefix.
func (s scope) within(child scope) scope {
	out := scope{defaultNS: s.defaultNS}
	if child.defaultNS != "" {
		out.defaultNS = child.defaultNS
	}

	rebound := make(map[string]bool, len(child.namespaces))
	for _, ns := range child.namespaces {
		rebound[ns.Prefix] = true
	}
	for _, ns := range s.namespaces {
		if !rebound[ns.Prefix] {
			out.namespaces = append(out.namespaces, ns)
		}
	}
	out.namespaces = append(out.namespaces, child.namespaces...)

	seen := make(map[string]bool)
	for _, prefix := range append(append([]string(nil), s.ignorable...), child.ignorable...) {
		if !seen[prefix] {
			seen[prefix] = true
			out.ignorable = append(out.ignorable, prefix)
		}
	}
	return out
}

// matchBody is the pattern-based fallback for documents the streaming
// parser rejects.
func matchBody(text string) (*Body, bool) {
	m := bodyPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}

	body := &Body{Content: strings.TrimSpace(stripTrailingSectPr(m[1]))}
	if root := rootPattern.FindString(text); root != "" {
		for _, ns := range xmlnsPattern.FindAllStringSubmatch(root, -1) {
			body.Namespaces = append(body.Namespaces, Namespace{Prefix: ns[1], URI: ns[2]})
		}
		if ig := ignorablePattern.FindStringSubmatch(root); ig != nil {
			body.Ignorable = strings.Fields(ig[1])
		}
	}
	return body, true
}

// stripTrailingSectPr removes a section properties block that closes the
// fragment. Blocks nested in paragraph properties, or inside a
// w:sectPrChange of the trailing block, are left alone.
func stripTrailingSectPr(content string) string {
	cut := -1
	open := 0
	for _, loc := range sectOpenPattern.FindAllStringSubmatchIndex(content, -1) {
		// closes seen before this candidate balance the opens before it
		closes := strings.Count(content[:loc[0]], "</w:sectPr>")
		if open == closes && trailingSectPr.MatchString(content[loc[0]:]) {
			cut = loc[0]
		}
		if loc[3] == loc[2] { // not self-closing
			open++
		}
	}
	if cut < 0 {
		return content
	}
	return content[:cut]
}
