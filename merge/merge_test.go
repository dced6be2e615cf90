package merge

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tsawler/docstamp/docx"
	"github.com/tsawler/docstamp/opc"
)

const testContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const testRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const photoRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
  <Relationship Id="rId4" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/photo.png"/>
  <Relationship Id="rId9" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="https://example.com" TargetMode="External"/>
</Relationships>`

// wrapDocument wraps body content in a w:document root declaring the
// drawing namespaces pictures need.
func wrapDocument(content string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"
  xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"
  xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
  xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
  xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">
  <w:body>` + content + `</w:body>
</w:document>`
}

// newRecord builds a rendered record package. Extra parts are given as
// name/content pairs.
func newRecord(t *testing.T, content string, extra ...string) *opc.Package {
	t.Helper()

	pkg := opc.New()
	pkg.SetPart(opc.ContentTypesPath, []byte(testContentTypes))
	pkg.SetPart(RootRelsPath, []byte(testRootRels))
	pkg.SetPart(docx.DocumentPath, []byte(wrapDocument(content)))
	for i := 0; i+1 < len(extra); i += 2 {
		pkg.SetPart(extra[i], []byte(extra[i+1]))
	}
	return pkg
}

func textParagraph(text string) string {
	return `<w:p><w:r><w:t>` + text + `</w:t></w:r></w:p>`
}

func pictureParagraph(relID string) string {
	return `<w:p><w:r><w:drawing><wp:inline><a:graphic><a:graphicData><pic:pic><pic:blipFill><a:blip r:embed="` +
		relID + `"/></pic:blipFill></pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`
}

// solidPNG encodes a 2x2 image of one color.
func solidPNG(t *testing.T, c color.Color) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func documentText(t *testing.T, pkg *opc.Package) string {
	t.Helper()

	r, err := docx.NewReader(pkg)
	require.NoError(t, err)
	text, err := r.Text()
	require.NoError(t, err)
	return text
}

func reopen(t *testing.T, pkg *opc.Package) *opc.Package {
	t.Helper()

	data, err := pkg.Serialize()
	require.NoError(t, err)
	reopened, err := opc.Open(data)
	require.NoError(t, err)
	return reopened
}

func TestMerge_EmptySet(t *testing.T) {
	_, err := Merge(nil)
	assert.ErrorIs(t, err, ErrEmptyMergeSet)

	_, err = MergeBytes([][]byte{})
	assert.ErrorIs(t, err, ErrEmptyMergeSet)
}

func TestMerge_MissingBody(t *testing.T) {
	good := newRecord(t, textParagraph("fine"))
	bad := opc.New()
	bad.SetPart(opc.ContentTypesPath, []byte(testContentTypes))

	_, err := Merge([]*opc.Package{good, bad})
	require.Error(t, err)
	assert.ErrorIs(t, err, docx.ErrMissingBody)

	var recErr *RecordError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, 1, recErr.Index)
	assert.True(t, strings.HasPrefix(err.Error(), "record 2: "), err.Error())
}

func TestMerge_NilPackage(t *testing.T) {
	_, err := Merge([]*opc.Package{newRecord(t, textParagraph("x")), nil})
	assert.ErrorIs(t, err, docx.ErrMissingBody)
}

func TestMergeBytes_CorruptInput(t *testing.T) {
	good, err := newRecord(t, textParagraph("fine")).Serialize()
	require.NoError(t, err)

	_, err = MergeBytes([][]byte{good, good, []byte("not a zip")})
	require.Error(t, err)
	assert.ErrorIs(t, err, opc.ErrCorruptArchive)

	var recErr *RecordError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, 2, recErr.Index)
}

func TestMerge_RecordScenario(t *testing.T) {
	a := newRecord(t, textParagraph("Record A")+`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr>`)
	b := newRecord(t, textParagraph("Record B")+`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr>`)

	out, err := Merge([]*opc.Package{a, b})
	require.NoError(t, err)
	out = reopen(t, out)

	assert.Equal(t, "Record A\n"+docx.PageBreak+"\nRecord B", documentText(t, out))

	for _, part := range DefaultParts() {
		assert.True(t, out.Has(part.Path), "missing %s", part.Path)
	}
	theme, ok := out.Part(ThemePath)
	require.True(t, ok)
	assert.Equal(t, defaultTheme, string(theme))

	// one section only, with the fixed geometry
	doc, _ := out.Part(docx.DocumentPath)
	assert.Equal(t, 1, strings.Count(string(doc), "<w:sectPr>"))
	assert.Contains(t, string(doc), `<w:pgSz w:w="12240" w:h="15840"/>`)
}

func TestMerge_PageBreaksAndOrder(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("%d records", n), func(t *testing.T) {
			pkgs := make([]*opc.Package, n)
			for i := range pkgs {
				pkgs[i] = newRecord(t, textParagraph(fmt.Sprintf("Record %d", i)))
			}

			out, err := Merge(pkgs)
			require.NoError(t, err)

			doc, _ := out.Part(docx.DocumentPath)
			assert.Equal(t, n-1, strings.Count(string(doc), PageBreak))

			last := -1
			for i := 0; i < n; i++ {
				pos := strings.Index(string(doc), fmt.Sprintf("Record %d", i))
				require.Greater(t, pos, last, "record %d out of order", i)
				last = pos
			}
		})
	}
}

func TestMerge_IdempotentReopen(t *testing.T) {
	a := newRecord(t, textParagraph("one"), docx.MediaPrefix+"photo.png", string(solidPNG(t, color.White)))
	b := newRecord(t, textParagraph("two"))

	first, err := MergeBytes(mustSerialize(t, a, b))
	require.NoError(t, err)

	pkg, err := opc.Open(first)
	require.NoError(t, err)
	second, err := pkg.Serialize()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = docx.NewReader(pkg)
	assert.NoError(t, err)
}

func mustSerialize(t *testing.T, pkgs ...*opc.Package) [][]byte {
	t.Helper()

	out := make([][]byte, len(pkgs))
	for i, pkg := range pkgs {
		data, err := pkg.Serialize()
		require.NoError(t, err)
		out[i] = data
	}
	return out
}

func TestMerge_SameNamePhoto(t *testing.T) {
	red := solidPNG(t, color.RGBA{R: 255, A: 255})
	blue := solidPNG(t, color.RGBA{B: 255, A: 255})
	require.NotEqual(t, red, blue)

	a := newRecord(t, textParagraph("A")+pictureParagraph("rId4"),
		docx.DocumentRelsPath, photoRels,
		docx.MediaPrefix+"photo.png", string(red))
	b := newRecord(t, textParagraph("B")+pictureParagraph("rId4"),
		docx.DocumentRelsPath, photoRels,
		docx.MediaPrefix+"photo.png", string(blue))

	out, err := Merge([]*opc.Package{a, b})
	require.NoError(t, err)
	out = reopen(t, out)

	got0, ok := out.Part(docx.MediaPrefix + "photo_0.png")
	require.True(t, ok)
	got1, ok := out.Part(docx.MediaPrefix + "photo_1.png")
	require.True(t, ok)
	assert.Equal(t, red, got0)
	assert.Equal(t, blue, got1)

	// the base keeps its original for headers that may point at it
	assert.True(t, out.Has(docx.MediaPrefix+"photo.png"))

	relsData, ok := out.Part(docx.DocumentRelsPath)
	require.True(t, ok)
	rels, err := docx.ParseRelationships(relsData)
	require.NoError(t, err)
	targets := make(map[string]string)
	for _, rel := range rels.Relationships {
		targets[rel.ID] = rel.Target
	}
	assert.Equal(t, "media/photo_0.png", targets["rec0_rId4"])
	assert.Equal(t, "media/photo_1.png", targets["rec1_rId4"])
	assert.Equal(t, "media/photo.png", targets["rId4"])

	// each record's picture resolves to its own bytes
	doc, _ := out.Part(docx.DocumentPath)
	text := string(doc)
	brk := strings.Index(text, PageBreak)
	require.Positive(t, brk)
	assert.Contains(t, text[:brk], `r:embed="rec0_rId4"`)
	assert.NotContains(t, text[:brk], "rec1_")
	assert.Contains(t, text[brk:], `r:embed="rec1_rId4"`)
	assert.NotContains(t, text[brk:], "rec0_")

	for id, want := range map[string][]byte{"rec0_rId4": red, "rec1_rId4": blue} {
		data, ok := out.Part(docx.ResolveTarget(targets[id]))
		require.True(t, ok, id)
		assert.Equal(t, want, data, id)
	}

	ct, _ := out.Part(opc.ContentTypesPath)
	assert.Contains(t, string(ct), `<Default Extension="png" ContentType="image/png"/>`)
}

func TestMerge_RecordHyperlinks(t *testing.T) {
	otherRels := strings.Replace(photoRels, "https://example.com", "https://b.example.org", 1)
	link := `<w:p><w:hyperlink r:id="rId9"><w:r><w:t>site</w:t></w:r></w:hyperlink></w:p>`

	a := newRecord(t, link, docx.DocumentRelsPath, photoRels)
	b := newRecord(t, link, docx.DocumentRelsPath, otherRels)

	out, err := Merge([]*opc.Package{a, b})
	require.NoError(t, err)
	out = reopen(t, out)

	doc, _ := out.Part(docx.DocumentPath)
	text := string(doc)
	brk := strings.Index(text, PageBreak)
	require.Positive(t, brk)
	assert.Contains(t, text[:brk], `<w:hyperlink r:id="rId9">`)
	assert.Contains(t, text[brk:], `<w:hyperlink r:id="rec1_rId9">`)

	relsData, ok := out.Part(docx.DocumentRelsPath)
	require.True(t, ok)
	rels, err := docx.ParseRelationships(relsData)
	require.NoError(t, err)
	byID := make(map[string]docx.Relationship)
	for _, rel := range rels.Relationships {
		byID[rel.ID] = rel
	}
	assert.Equal(t, "https://example.com", byID["rId9"].Target)
	assert.Equal(t, "https://b.example.org", byID["rec1_rId9"].Target)
	assert.True(t, byID["rec1_rId9"].External())
}

func TestMerge_DefaultNamespaceRecord(t *testing.T) {
	a := newRecord(t, textParagraph("Record A"))
	b := newRecord(t, "")
	b.SetPart(docx.DocumentPath, []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<document xmlns="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><body><p><r><t>Record B</t></r></p><sectPr/></body></document>`))

	out, err := Merge([]*opc.Package{a, b})
	require.NoError(t, err)
	out = reopen(t, out)

	doc, _ := out.Part(docx.DocumentPath)
	assert.Contains(t, string(doc), `<w:p><w:r><w:t>Record B</w:t></w:r></w:p>`)
	assert.Equal(t, "Record A\n"+docx.PageBreak+"\nRecord B", documentText(t, out))

	// every element resolves to the main namespace
	d := xml.NewDecoder(bytes.NewReader(doc))
	for {
		tok, err := d.Token()
		if err != nil {
			break
		}
		if start, ok := tok.(xml.StartElement); ok {
			assert.Equal(t, "http://schemas.openxmlformats.org/wordprocessingml/2006/main", start.Name.Space, start.Name.Local)
		}
	}
}

func TestMerge_KeepsFirstSectionScheme(t *testing.T) {
	first := newRecord(t, textParagraph("first")+`<w:sectPr>
  <w:headerReference w:type="default" r:id="rId8"/>
  <w:headerReference w:type="first" r:id="rId10"/>
  <w:footerReference w:type="default" r:id="rId9"/>
  <w:titlePg/>
</w:sectPr>`,
		"word/header1.xml", `<w:hdr xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"/>`)
	second := newRecord(t, textParagraph("second")+`<w:sectPr><w:headerReference w:type="default" r:id="rId20"/></w:sectPr>`)

	out, err := Merge([]*opc.Package{first, second})
	require.NoError(t, err)

	doc, _ := out.Part(docx.DocumentPath)
	text := string(doc)
	assert.Contains(t, text, `<w:headerReference w:type="default" r:id="rId8"/>`)
	assert.Contains(t, text, `<w:headerReference w:type="first" r:id="rId10"/>`)
	assert.Contains(t, text, `<w:footerReference w:type="default" r:id="rId9"/>`)
	assert.Contains(t, text, `<w:titlePg/>`)
	assert.NotContains(t, text, "rId20")

	ct, _ := out.Part(opc.ContentTypesPath)
	assert.Contains(t, string(ct), `PartName="/word/header1.xml"`)
}

func TestMerge_InputsUnchanged(t *testing.T) {
	a := newRecord(t, textParagraph("A")+pictureParagraph("rId4"),
		docx.DocumentRelsPath, photoRels,
		docx.MediaPrefix+"photo.png", "png")
	before, err := a.Serialize()
	require.NoError(t, err)

	_, err = Merge([]*opc.Package{a, a})
	require.NoError(t, err)

	after, err := a.Serialize()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestMerge_KeepsExistingParts(t *testing.T) {
	styles := `<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:style w:styleId="Custom"/></w:styles>`
	a := newRecord(t, textParagraph("A"), StylesPath, styles)

	out, err := Merge([]*opc.Package{a})
	require.NoError(t, err)

	got, _ := out.Part(StylesPath)
	assert.Equal(t, styles, string(got))
}

func TestMerge_Options(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	geom := DefaultGeometry()
	geom.Width, geom.Height = 11906, 16838

	out, err := Merge([]*opc.Package{newRecord(t, textParagraph("A"))},
		WithLogger(zap.New(core)),
		WithGeometry(geom),
		WithRequiredParts([]RequiredPart{{Path: StylesPath, Content: []byte(defaultStyles)}}))
	require.NoError(t, err)

	doc, _ := out.Part(docx.DocumentPath)
	assert.Contains(t, string(doc), `<w:pgSz w:w="11906" w:h="16838"/>`)
	assert.True(t, out.Has(StylesPath))
	assert.False(t, out.Has(ThemePath))

	assert.Equal(t, 1, logs.FilterMessage("merge complete").Len())
	assert.Equal(t, 1, logs.FilterMessage("synthesized missing parts").Len())
}

func TestMerge_SeedsDocumentRelationships(t *testing.T) {
	a := newRecord(t, textParagraph("A")+pictureParagraph("rId4"), docx.MediaPrefix+"photo.png", "png")

	out, err := Merge([]*opc.Package{a})
	require.NoError(t, err)

	data, ok := out.Part(docx.DocumentRelsPath)
	require.True(t, ok)
	rels, err := docx.ParseRelationships(data)
	require.NoError(t, err)
	assert.True(t, rels.Has("rId1"))
}

func TestRecordError(t *testing.T) {
	err := &RecordError{Index: 0, Err: docx.ErrMissingBody}
	assert.Equal(t, "record 1: missing document body", err.Error())
	assert.ErrorIs(t, err, docx.ErrMissingBody)
}
