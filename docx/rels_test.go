package docx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/docstamp/opc"
)

const documentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
  <Relationship Id="rId4" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/photo.png"/>
  <Relationship Id="rId5" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="/word/media/logo.jpeg"/>
  <Relationship Id="rId6" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="http://example.com/a.png" TargetMode="External"/>
</Relationships>`

func TestParseRelationships(t *testing.T) {
	rels, err := ParseRelationships([]byte(documentRels))
	require.NoError(t, err)

	require.Len(t, rels.Relationships, 4)
	assert.Equal(t, "rId1", rels.Relationships[0].ID)
	assert.Equal(t, "styles.xml", rels.Relationships[0].Target)
	assert.True(t, rels.Relationships[3].External())
	assert.True(t, rels.Has("rId5"))
	assert.False(t, rels.Has("rId99"))
}

func TestParseRelationships_Invalid(t *testing.T) {
	_, err := ParseRelationships([]byte("<Relationships>"))
	assert.Error(t, err)
}

func TestRelationships_MarshalRoundTrip(t *testing.T) {
	rels := &Relationships{}
	rels.Add(Relationship{ID: "rId1", Type: RelTypeImage, Target: "media/a&b.png"})
	rels.Add(Relationship{ID: "rId2", Type: "t", Target: "http://x", TargetMode: "External"})

	data := rels.Marshal()
	assert.Contains(t, string(data), `xmlns="http://schemas.openxmlformats.org/package/2006/relationships"`)
	assert.Contains(t, string(data), `Target="media/a&amp;b.png"`)

	parsed, err := ParseRelationships(data)
	require.NoError(t, err)
	assert.Equal(t, rels.Relationships, parsed.Relationships)
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"media/image1.png", "word/media/image1.png"},
		{"/word/media/image1.png", "word/media/image1.png"},
		{"../customXml/item1.xml", "customXml/item1.xml"},
		{"header1.xml", "word/header1.xml"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveTarget(tt.target), tt.target)
	}
}

func TestMediaRelationships(t *testing.T) {
	pkg := createTestPackage(t, `<w:p/>`, DocumentRelsPath, documentRels)

	media, err := MediaRelationships(pkg)
	require.NoError(t, err)

	require.Len(t, media, 2)
	assert.Equal(t, "rId4", media[0].ID)
	assert.Equal(t, "rId5", media[1].ID)
}

func TestMediaRelationships_NoRelsPart(t *testing.T) {
	media, err := MediaRelationships(createTestPackage(t, `<w:p/>`))
	require.NoError(t, err)
	assert.Empty(t, media)
}

func TestExternalRelationships(t *testing.T) {
	pkg := createTestPackage(t, `<w:p/>`, DocumentRelsPath, documentRels)

	external, err := ExternalRelationships(pkg)
	require.NoError(t, err)

	require.Len(t, external, 1)
	assert.Equal(t, "rId6", external[0].ID)
	assert.Equal(t, "http://example.com/a.png", external[0].Target)
}

func TestListMedia(t *testing.T) {
	pkg := opc.New()
	pkg.SetPart("word/media/b.png", []byte("B"))
	pkg.SetPart("word/document.xml", []byte("<doc/>"))
	pkg.SetPart("word/media/a.png", []byte("A"))

	assets := ListMedia(pkg)
	require.Len(t, assets, 2)
	assert.Equal(t, "a.png", assets[0].Name)
	assert.Equal(t, []byte("A"), assets[0].Data)
	assert.Equal(t, "word/media/b.png", assets[1].Path())
}
