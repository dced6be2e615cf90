// Package format identifies the kind of document a file holds, so that
// only word-processing packages reach the merge engine.
package format

import (
	"encoding/xml"
	"path/filepath"
	"strings"

	"github.com/tsawler/docstamp/opc"
)

// Format represents a document format.
type Format int

const (
	// Unknown indicates an unrecognized format.
	Unknown Format = iota
	// DOCX indicates a Word document (.docx).
	DOCX
	// DOTX indicates a Word template (.dotx).
	DOTX
	// DOCM indicates a macro-enabled Word document (.docm).
	DOCM
	// DOTM indicates a macro-enabled Word template (.dotm).
	DOTM
	// XLSX indicates an Excel workbook.
	XLSX
	// PPTX indicates a PowerPoint presentation.
	PPTX
	// ODT indicates an OpenDocument text document.
	ODT
	// PDF indicates a PDF document.
	PDF
)

var names = map[Format]struct{ name, ext string }{
	DOCX: {"DOCX", ".docx"},
	DOTX: {"DOTX", ".dotx"},
	DOCM: {"DOCM", ".docm"},
	DOTM: {"DOTM", ".dotm"},
	XLSX: {"XLSX", ".xlsx"},
	PPTX: {"PPTX", ".pptx"},
	ODT:  {"ODT", ".odt"},
	PDF:  {"PDF", ".pdf"},
}

// String returns the string representation of the format.
func (f Format) String() string {
	if n, ok := names[f]; ok {
		return n.name
	}
	return "Unknown"
}

// Extension returns the typical file extension for the format.
func (f Format) Extension() string {
	return names[f].ext
}

// WordProcessing reports whether the format carries word/document.xml and
// can be merged.
func (f Format) WordProcessing() bool {
	switch f {
	case DOCX, DOTX, DOCM, DOTM:
		return true
	}
	return false
}

// mainContentTypes maps the content type of a package's main part to its
// format.
var mainContentTypes = map[string]Format{
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml": DOCX,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.template.main+xml": DOTX,
	"application/vnd.ms-word.document.macroEnabled.main+xml":                           DOCM,
	"application/vnd.ms-word.template.macroEnabledTemplate.main+xml":                   DOTM,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml":       XLSX,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml": PPTX,
}

// Detect determines file format from filename extension.
func Detect(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	for f, n := range names {
		if n.ext == ext {
			return f
		}
	}
	return Unknown
}

// DetectFromMagic checks leading bytes. Zip archives are reported as
// Unknown; use DetectPackage to tell them apart.
func DetectFromMagic(data []byte) Format {
	if len(data) >= 4 && string(data[:4]) == "%PDF" {
		return PDF
	}
	return Unknown
}

// DetectBytes inspects file content. Zip archives are opened and
// classified by their main part.
func DetectBytes(data []byte) (Format, error) {
	if f := DetectFromMagic(data); f != Unknown {
		return f, nil
	}
	if len(data) < 4 || string(data[:4]) != "PK\x03\x04" {
		return Unknown, nil
	}

	pkg, err := opc.Open(data)
	if err != nil {
		return Unknown, err
	}
	return DetectPackage(pkg), nil
}

type typesXML struct {
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

// DetectPackage classifies an opened package, first by the content types
// it declares and then by the folders it contains.
func DetectPackage(pkg *opc.Package) Format {
	if data, ok := pkg.Part("mimetype"); ok && strings.Contains(string(data), "application/vnd.oasis.opendocument.text") {
		return ODT
	}

	if text, err := pkg.Text(opc.ContentTypesPath); err == nil {
		var types typesXML
		if xml.Unmarshal([]byte(text), &types) == nil {
			for _, o := range types.Overrides {
				if f, ok := mainContentTypes[o.ContentType]; ok {
					return f
				}
			}
		}
	}

	for _, name := range pkg.Paths() {
		switch {
		case strings.HasPrefix(name, "word/"):
			return DOCX
		case strings.HasPrefix(name, "xl/"):
			return XLSX
		case strings.HasPrefix(name, "ppt/"):
			return PPTX
		}
	}
	return Unknown
}
