package docx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"path"
	"strings"

	"github.com/tsawler/docstamp/opc"
)

// RelTypeImage is the relationship type for embedded pictures.
const RelTypeImage = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"

// Relationships represents a _rels/*.rels part.
type Relationships struct {
	XMLName       xml.Name       `xml:"Relationships"`
	Relationships []Relationship `xml:"Relationship"`
}

// Relationship represents a single relationship.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"` // External or empty (internal)
}

// External reports whether the relationship points outside the package.
func (r Relationship) External() bool {
	return strings.EqualFold(r.TargetMode, "External")
}

// ParseRelationships decodes a relationships part.
func ParseRelationships(data []byte) (*Relationships, error) {
	text, err := opc.DecodeXML(data)
	if err != nil {
		return nil, err
	}
	rels := &Relationships{}
	if err := xml.Unmarshal([]byte(text), rels); err != nil {
		return nil, fmt.Errorf("unmarshaling relationships: %w", err)
	}
	return rels, nil
}

// Has reports whether a relationship with the given id exists.
func (r *Relationships) Has(id string) bool {
	for _, rel := range r.Relationships {
		if rel.ID == id {
			return true
		}
	}
	return false
}

// Add appends a relationship.
func (r *Relationships) Add(rel Relationship) {
	r.Relationships = append(r.Relationships, rel)
}

// Marshal encodes the relationships part.
func (r *Relationships) Marshal() []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<Relationships xmlns="` + nsRels + `">`)
	for _, rel := range r.Relationships {
		b.WriteString(`<Relationship Id="`)
		xml.EscapeText(&b, []byte(rel.ID))
		b.WriteString(`" Type="`)
		xml.EscapeText(&b, []byte(rel.Type))
		b.WriteString(`" Target="`)
		xml.EscapeText(&b, []byte(rel.Target))
		b.WriteString(`"`)
		if rel.TargetMode != "" {
			b.WriteString(` TargetMode="`)
			xml.EscapeText(&b, []byte(rel.TargetMode))
			b.WriteString(`"`)
		}
		b.WriteString(`/>`)
	}
	b.WriteString(`</Relationships>`)
	return b.Bytes()
}

// ResolveTarget returns the package part name a relationship of the main
// document points at. Targets are relative to word/ unless absolute.
func ResolveTarget(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join("word", target)
}

// MediaRelationships returns the main document's internal relationships
// whose targets live under word/media/. A package without a relationships
// part has none.
func MediaRelationships(pkg *opc.Package) ([]Relationship, error) {
	return documentRelationships(pkg, func(rel Relationship) bool {
		return !rel.External() && strings.HasPrefix(ResolveTarget(rel.Target), MediaPrefix)
	})
}

// ExternalRelationships returns the main document's relationships that
// point outside the package, such as hyperlinks and linked pictures.
func ExternalRelationships(pkg *opc.Package) ([]Relationship, error) {
	return documentRelationships(pkg, Relationship.External)
}

func documentRelationships(pkg *opc.Package, keep func(Relationship) bool) ([]Relationship, error) {
	data, ok := pkg.Part(DocumentRelsPath)
	if !ok {
		return nil, nil
	}

	rels, err := ParseRelationships(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", DocumentRelsPath, err)
	}

	var kept []Relationship
	for _, rel := range rels.Relationships {
		if keep(rel) {
			kept = append(kept, rel)
		}
	}
	return kept, nil
}
