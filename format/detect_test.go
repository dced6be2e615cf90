package format

import (
	"testing"

	"github.com/tsawler/docstamp/opc"
)

func TestFormat_String(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{PDF, "PDF"},
		{DOCX, "DOCX"},
		{DOTX, "DOTX"},
		{DOCM, "DOCM"},
		{ODT, "ODT"},
		{XLSX, "XLSX"},
		{Unknown, "Unknown"},
		{Format(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.format.String(); got != tt.want {
			t.Errorf("Format(%d).String() = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestFormat_Extension(t *testing.T) {
	if got := DOTM.Extension(); got != ".dotm" {
		t.Errorf("DOTM.Extension() = %q", got)
	}
	if got := Unknown.Extension(); got != "" {
		t.Errorf("Unknown.Extension() = %q", got)
	}
}

func TestFormat_WordProcessing(t *testing.T) {
	for _, f := range []Format{DOCX, DOTX, DOCM, DOTM} {
		if !f.WordProcessing() {
			t.Errorf("%v should be word processing", f)
		}
	}
	for _, f := range []Format{Unknown, XLSX, PPTX, ODT, PDF} {
		if f.WordProcessing() {
			t.Errorf("%v should not be word processing", f)
		}
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
	}{
		{"document.pdf", PDF},
		{"document.docx", DOCX},
		{"document.DOCX", DOCX},
		{"template.dotx", DOTX},
		{"/path/to/macro.docm", DOCM},
		{"sheet.xlsx", XLSX},
		{"slides.pptx", PPTX},
		{"doc.odt", ODT},
		{"document.txt", Unknown},
		{"document", Unknown},
		{"", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := Detect(tt.filename); got != tt.want {
				t.Errorf("Detect(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestDetectFromMagic(t *testing.T) {
	if got := DetectFromMagic([]byte("%PDF-1.7")); got != PDF {
		t.Errorf("DetectFromMagic(pdf) = %v", got)
	}
	if got := DetectFromMagic([]byte("PK\x03\x04rest")); got != Unknown {
		t.Errorf("DetectFromMagic(zip) = %v", got)
	}
	if got := DetectFromMagic([]byte("PK")); got != Unknown {
		t.Errorf("DetectFromMagic(short) = %v", got)
	}
}

func serialize(t *testing.T, parts ...string) []byte {
	t.Helper()

	pkg := opc.New()
	for i := 0; i+1 < len(parts); i += 2 {
		pkg.SetPart(parts[i], []byte(parts[i+1]))
	}
	data, err := pkg.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	return data
}

func contentTypes(mainType string) string {
	return `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Override PartName="/word/document.xml" ContentType="` + mainType + `"/></Types>`
}

func TestDetectBytes(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"pdf", []byte("%PDF-1.4\n%%EOF"), PDF},
		{"text", []byte("Hello, World!"), Unknown},
		{"docx", serialize(t,
			opc.ContentTypesPath, contentTypes("application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"),
			"word/document.xml", "<w:document/>"), DOCX},
		{"dotx", serialize(t,
			opc.ContentTypesPath, contentTypes("application/vnd.openxmlformats-officedocument.wordprocessingml.template.main+xml"),
			"word/document.xml", "<w:document/>"), DOTX},
		{"docm", serialize(t,
			opc.ContentTypesPath, contentTypes("application/vnd.ms-word.document.macroEnabled.main+xml"),
			"word/document.xml", "<w:document/>"), DOCM},
		{"word folder only", serialize(t, "word/document.xml", "<w:document/>"), DOCX},
		{"xlsx folder", serialize(t, "xl/workbook.xml", "<workbook/>"), XLSX},
		{"pptx folder", serialize(t, "ppt/presentation.xml", "<p/>"), PPTX},
		{"odt", serialize(t, "mimetype", "application/vnd.oasis.opendocument.text", "content.xml", "<x/>"), ODT},
		{"other zip", serialize(t, "readme.txt", "hi"), Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectBytes(tt.data)
			if err != nil {
				t.Fatalf("DetectBytes() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectBytes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectBytes_BrokenZip(t *testing.T) {
	if _, err := DetectBytes([]byte("PK\x03\x04 truncated")); err == nil {
		t.Error("expected an error for a truncated archive")
	}
}
