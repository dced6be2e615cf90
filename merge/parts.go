package merge

import (
	"github.com/tsawler/docstamp/docx"
	"github.com/tsawler/docstamp/opc"
)

// Paths of parts every output package must contain.
const (
	RootRelsPath    = "_rels/.rels"
	StylesPath      = "word/styles.xml"
	SettingsPath    = "word/settings.xml"
	WebSettingsPath = "word/webSettings.xml"
	FontTablePath   = "word/fontTable.xml"
	ThemePath       = "word/theme/theme1.xml"
)

// RequiredPart pairs a part name with the content written when a package
// lacks it.
type RequiredPart struct {
	Path    string
	Content []byte
}

// DefaultParts returns the fixed table of required parts and their minimal
// defaults. Each call returns a fresh slice; contents never vary.
func DefaultParts() []RequiredPart {
	return []RequiredPart{
		{Path: opc.ContentTypesPath, Content: []byte(defaultContentTypes)},
		{Path: RootRelsPath, Content: []byte(defaultRootRels)},
		{Path: docx.DocumentRelsPath, Content: []byte(defaultDocumentRels)},
		{Path: StylesPath, Content: []byte(defaultStyles)},
		{Path: SettingsPath, Content: []byte(defaultSettings)},
		{Path: WebSettingsPath, Content: []byte(defaultWebSettings)},
		{Path: FontTablePath, Content: []byte(defaultFontTable)},
		{Path: ThemePath, Content: []byte(defaultTheme)},
	}
}

// EnsureRequiredParts writes the default content of every listed part the
// package lacks and returns the paths it added. Existing parts are never
// replaced.
func EnsureRequiredParts(pkg *opc.Package, parts []RequiredPart) []string {
	var added []string
	for _, part := range parts {
		if pkg.Has(part.Path) {
			continue
		}
		pkg.SetPart(part.Path, append([]byte(nil), part.Content...))
		added = append(added, part.Path)
	}
	return added
}

// lookupPart returns the default content for path from parts.
func lookupPart(parts []RequiredPart, path string) ([]byte, bool) {
	for _, part := range parts {
		if part.Path == path {
			return part.Content, true
		}
	}
	return nil, false
}
