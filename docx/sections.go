package docx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"

	"github.com/tsawler/docstamp/opc"
)

// RefKind distinguishes header references from footer references.
type RefKind string

const (
	HeaderRef RefKind = "header"
	FooterRef RefKind = "footer"
)

// SectionRef binds a header or footer part to a page slot.
type SectionRef struct {
	Kind  RefKind
	Slot  string // default, first, even
	RelID string
}

// SectionRefs holds the header/footer scheme of a document's final section.
type SectionRefs struct {
	Refs []SectionRef

	// TitlePage is set when the section uses a distinct first-page
	// header and footer.
	TitlePage bool
}

// OfKind returns the references of one kind in document order.
func (s SectionRefs) OfKind(kind RefKind) []SectionRef {
	var refs []SectionRef
	for _, r := range s.Refs {
		if r.Kind == kind {
			refs = append(refs, r)
		}
	}
	return refs
}

// refPattern is the fallback for documents encoding/xml cannot decode.
var (
	refPattern   = regexp.MustCompile(`<w:(header|footer)Reference\b[^>]*?/?>`)
	typeAttr     = regexp.MustCompile(`\bw:type\s*=\s*"([^"]*)"`)
	relIDAttr    = regexp.MustCompile(`\br:id\s*=\s*"([^"]*)"`)
	titlePgFound = regexp.MustCompile(`<w:titlePg(?:\s[^>]*)?/?>`)
)

// ExtractSectionRefs returns the header and footer references of the
// body-level section properties. A document without them yields empty refs.
func ExtractSectionRefs(pkg *opc.Package) (SectionRefs, error) {
	text, err := pkg.Text(DocumentPath)
	if err != nil {
		if errors.Is(err, opc.ErrPartNotFound) {
			return SectionRefs{}, fmt.Errorf("%w: %s not found", ErrMissingBody, DocumentPath)
		}
		return SectionRefs{}, err
	}

	doc := &documentXML{}
	if err := xml.Unmarshal([]byte(text), doc); err != nil {
		return matchSectionRefs(text), nil
	}
	if doc.Body == nil || doc.Body.SectPr == nil {
		return SectionRefs{}, nil
	}

	sect := doc.Body.SectPr
	refs := SectionRefs{TitlePage: sect.TitlePg.enabled()}
	for _, h := range sect.HeaderRefs {
		refs.Refs = append(refs.Refs, SectionRef{Kind: HeaderRef, Slot: slotOrDefault(h.Type), RelID: h.ID})
	}
	for _, f := range sect.FooterRefs {
		refs.Refs = append(refs.Refs, SectionRef{Kind: FooterRef, Slot: slotOrDefault(f.Type), RelID: f.ID})
	}
	return refs, nil
}

// matchSectionRefs scans the trailing section block with patterns.
func matchSectionRefs(text string) SectionRefs {
	m := bodyPattern.FindStringSubmatch(text)
	if m == nil {
		return SectionRefs{}
	}
	content := m[1]
	sect := content[len(stripTrailingSectPr(content)):]

	var refs SectionRefs
	for _, match := range refPattern.FindAllStringSubmatch(sect, -1) {
		ref := SectionRef{Kind: RefKind(match[1]), Slot: "default"}
		if t := typeAttr.FindStringSubmatch(match[0]); t != nil {
			ref.Slot = slotOrDefault(t[1])
		}
		if id := relIDAttr.FindStringSubmatch(match[0]); id != nil {
			ref.RelID = id[1]
		}
		refs.Refs = append(refs.Refs, ref)
	}
	refs.TitlePage = titlePgFound.MatchString(sect)
	return refs
}

func slotOrDefault(slot string) string {
	if slot == "" {
		return "default"
	}
	return slot
}
