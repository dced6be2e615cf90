package docx

import (
	"strings"

	"github.com/tsawler/docstamp/opc"
)

// MediaAsset is a binary part stored under word/media/.
type MediaAsset struct {
	Name string // path relative to word/media/, e.g. "image1.png"
	Data []byte
}

// Path returns the asset's part name.
func (m MediaAsset) Path() string {
	return MediaPrefix + m.Name
}

// ListMedia returns every part under word/media/, sorted by name.
func ListMedia(pkg *opc.Package) []MediaAsset {
	names := pkg.PathsWithPrefix(MediaPrefix)
	assets := make([]MediaAsset, 0, len(names))
	for _, name := range names {
		data, _ := pkg.Part(name)
		assets = append(assets, MediaAsset{
			Name: strings.TrimPrefix(name, MediaPrefix),
			Data: data,
		})
	}
	return assets
}
