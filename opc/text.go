package opc

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// declRegex matches the encoding pseudo-attribute of an XML declaration.
var declRegex = regexp.MustCompile(`^\s*<\?xml[^>]*?\sencoding\s*=\s*["']([A-Za-z0-9._:\-]+)["']`)

// Text returns an XML part decoded to UTF-8.
func (p *Package) Text(name string) (string, error) {
	data, ok := p.Part(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrPartNotFound, name)
	}
	text, err := DecodeXML(data)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", name, err)
	}
	return text, nil
}

// DecodeXML converts XML bytes to a UTF-8 string.
//
// A byte order mark selects UTF-8 or UTF-16 and is stripped. Without one, a
// non-UTF-8 encoding named in the XML declaration is honoured. The
// declaration in the result always says UTF-8, so the text can be handed
// to encoding/xml without a CharsetReader.
func DecodeXML(data []byte) (string, error) {
	decoded, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	if err != nil {
		return "", err
	}
	hadBOM := len(decoded) != len(data) || hasUTF16BOM(data)

	m := declRegex.FindSubmatchIndex(decoded)
	if m == nil {
		return string(decoded), nil
	}

	label := strings.ToLower(string(decoded[m[2]:m[3]]))
	switch {
	case label == "utf-8" || label == "utf8":
		return string(decoded), nil
	case strings.HasPrefix(label, "utf-16") && hadBOM:
		// already converted by the BOM override
	case !hadBOM:
		enc, _ := charset.Lookup(label)
		if enc == nil {
			return "", fmt.Errorf("unsupported encoding %q", label)
		}
		decoded, err = enc.NewDecoder().Bytes(decoded)
		if err != nil {
			return "", fmt.Errorf("decoding %s: %w", label, err)
		}
		m = declRegex.FindSubmatchIndex(decoded)
		if m == nil {
			return string(decoded), nil
		}
	}

	return string(decoded[:m[2]]) + "UTF-8" + string(decoded[m[3]:]), nil
}

func hasUTF16BOM(data []byte) bool {
	return len(data) >= 2 && ((data[0] == 0xFE && data[1] == 0xFF) || (data[0] == 0xFF && data[1] == 0xFE))
}
