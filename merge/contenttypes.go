package merge

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF for sniffing
	_ "image/jpeg" // register JPEG for sniffing
	_ "image/png"  // register PNG for sniffing
	"path"
	"regexp"
	"strings"

	_ "golang.org/x/image/bmp"  // register BMP for sniffing
	_ "golang.org/x/image/tiff" // register TIFF for sniffing
	_ "golang.org/x/image/webp" // register WebP for sniffing

	"github.com/tsawler/docstamp/docx"
	"github.com/tsawler/docstamp/opc"
)

const octetStream = "application/octet-stream"

// mediaTypes maps lower-case media extensions to content types.
var mediaTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"webp": "image/webp",
	"emf":  "image/x-emf",
	"wmf":  "image/x-wmf",
	"svg":  "image/svg+xml",
}

// partTypes gives the override content type of word/ parts by name pattern.
var partTypes = []struct {
	pattern     *regexp.Regexp
	contentType string
}{
	{regexp.MustCompile(`^word/header\d*\.xml$`), "application/vnd.openxmlformats-officedocument.wordprocessingml.header+xml"},
	{regexp.MustCompile(`^word/footer\d*\.xml$`), "application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"},
	{regexp.MustCompile(`^word/numbering\.xml$`), "application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"},
	{regexp.MustCompile(`^word/footnotes\.xml$`), "application/vnd.openxmlformats-officedocument.wordprocessingml.footnotes+xml"},
	{regexp.MustCompile(`^word/endnotes\.xml$`), "application/vnd.openxmlformats-officedocument.wordprocessingml.endnotes+xml"},
}

type typesXML struct {
	XMLName   xml.Name      `xml:"Types"`
	Defaults  []defaultXML  `xml:"Default"`
	Overrides []overrideXML `xml:"Override"`
}

type defaultXML struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type overrideXML struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// EnsureContentTypes adds the content-type entries the package's media and
// header/footer parts need but [Content_Types].xml does not declare.
// Existing entries are never changed. It reports whether the part was
// rewritten.
func EnsureContentTypes(pkg *opc.Package) (bool, error) {
	text, err := pkg.Text(opc.ContentTypesPath)
	if err != nil {
		return false, err
	}

	types := &typesXML{}
	if err := xml.Unmarshal([]byte(text), types); err != nil {
		return false, fmt.Errorf("parsing %s: %w", opc.ContentTypesPath, err)
	}

	defaults := make(map[string]bool, len(types.Defaults))
	for _, d := range types.Defaults {
		defaults[strings.ToLower(d.Extension)] = true
	}
	overrides := make(map[string]bool, len(types.Overrides))
	for _, o := range types.Overrides {
		overrides[strings.ToLower(o.PartName)] = true
	}

	var entries bytes.Buffer
	for _, name := range pkg.PathsWithPrefix(docx.MediaPrefix) {
		partName := "/" + name
		if overrides[strings.ToLower(partName)] {
			continue
		}
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
		data, _ := pkg.Part(name)

		if ext == "" {
			writeOverride(&entries, partName, sniffContentType(data))
			overrides[strings.ToLower(partName)] = true
			continue
		}
		if defaults[ext] {
			continue
		}
		contentType, ok := mediaTypes[ext]
		if !ok {
			contentType = sniffContentType(data)
		}
		writeDefault(&entries, ext, contentType)
		defaults[ext] = true
	}

	for _, name := range pkg.PathsWithPrefix("word/") {
		partName := "/" + name
		if overrides[strings.ToLower(partName)] {
			continue
		}
		for _, pt := range partTypes {
			if pt.pattern.MatchString(name) {
				writeOverride(&entries, partName, pt.contentType)
				break
			}
		}
	}

	if entries.Len() == 0 {
		return false, nil
	}

	end := strings.LastIndex(text, "</Types>")
	if end < 0 {
		return false, errors.New("content types part has no closing Types tag")
	}
	updated := text[:end] + entries.String() + text[end:]
	pkg.SetPart(opc.ContentTypesPath, []byte(updated))
	return true, nil
}

// sniffContentType identifies image bytes by their header.
func sniffContentType(data []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return octetStream
	}
	return "image/" + format
}

func writeDefault(b *bytes.Buffer, ext, contentType string) {
	b.WriteString(`  <Default Extension="`)
	xml.EscapeText(b, []byte(ext))
	b.WriteString(`" ContentType="`)
	xml.EscapeText(b, []byte(contentType))
	b.WriteString("\"/>\n")
}

func writeOverride(b *bytes.Buffer, partName, contentType string) {
	b.WriteString(`  <Override PartName="`)
	xml.EscapeText(b, []byte(partName))
	b.WriteString(`" ContentType="`)
	xml.EscapeText(b, []byte(contentType))
	b.WriteString("\"/>\n")
}
