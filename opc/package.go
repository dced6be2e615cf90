package opc

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"
)

// ContentTypesPath is the name of the content-types manifest. It is always
// written first so consumers that sniff the archive find it immediately.
const ContentTypesPath = "[Content_Types].xml"

var (
	// ErrCorruptArchive is returned when bytes are not a readable zip archive.
	ErrCorruptArchive = errors.New("corrupt archive")

	// ErrPartNotFound is returned when a named part does not exist.
	ErrPartNotFound = errors.New("part not found")
)

// modTime is stamped on every written entry so output is byte-for-byte
// reproducible. It matches what Word itself writes.
var modTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// storedExtensions are already compressed; deflating them again wastes time.
var storedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".zip":  true,
	".mp3":  true,
	".mp4":  true,
}

// Package is an in-memory OPC container.
type Package struct {
	parts map[string][]byte
	order []string
}

// New returns an empty package.
func New() *Package {
	return &Package{
		parts: make(map[string][]byte),
	}
}

// Open reads a package from zip bytes.
func Open(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}

	p := New()
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}

		name := normalizeName(f.Name)
		if name == "" {
			continue
		}
		if p.Has(name) {
			return nil, fmt.Errorf("%w: duplicate entry %s", ErrCorruptArchive, name)
		}

		content, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrCorruptArchive, name, err)
		}
		p.SetPart(name, content)
	}

	return p, nil
}

// readEntry reads the content of a single archive entry.
func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// normalizeName converts an entry name to the canonical forward-slash form
// without a leading slash.
func normalizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.TrimPrefix(name, "/")
}

// Part returns the content of the named part.
// The returned slice must not be modified.
func (p *Package) Part(name string) ([]byte, bool) {
	data, ok := p.parts[normalizeName(name)]
	return data, ok
}

// Has reports whether the named part exists.
func (p *Package) Has(name string) bool {
	_, ok := p.parts[normalizeName(name)]
	return ok
}

// SetPart adds or replaces a part. Replacing keeps the original position.
func (p *Package) SetPart(name string, data []byte) {
	name = normalizeName(name)
	if _, ok := p.parts[name]; !ok {
		p.order = append(p.order, name)
	}
	p.parts[name] = data
}

// Delete removes a part if present.
func (p *Package) Delete(name string) {
	name = normalizeName(name)
	if _, ok := p.parts[name]; !ok {
		return
	}
	delete(p.parts, name)
	for i, n := range p.order {
		if n == name {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of parts.
func (p *Package) Len() int {
	return len(p.order)
}

// Paths returns all part names in insertion order.
func (p *Package) Paths() []string {
	return append([]string(nil), p.order...)
}

// PathsWithPrefix returns the sorted names of parts that start with prefix.
func (p *Package) PathsWithPrefix(prefix string) []string {
	var names []string
	for _, name := range p.order {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Clone returns a copy of the package. Part contents are shared, which is
// safe because parts are replaced, never edited in place.
func (p *Package) Clone() *Package {
	c := &Package{
		parts: make(map[string][]byte, len(p.parts)),
		order: append([]string(nil), p.order...),
	}
	for name, data := range p.parts {
		c.parts[name] = data
	}
	return c
}

// Serialize writes the package as a zip archive.
func (p *Package) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo writes the package as a zip archive to w.
func (p *Package) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)

	for _, name := range p.writeOrder() {
		header := &zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: modTime,
		}
		if storedExtensions[strings.ToLower(path.Ext(name))] {
			header.Method = zip.Store
		}

		fw, err := zw.CreateHeader(header)
		if err != nil {
			return cw.n, fmt.Errorf("creating %s: %w", name, err)
		}
		if _, err := fw.Write(p.parts[name]); err != nil {
			return cw.n, fmt.Errorf("writing %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("finalizing archive: %w", err)
	}
	return cw.n, nil
}

// writeOrder returns part names with the content-types manifest first.
func (p *Package) writeOrder() []string {
	names := make([]string, 0, len(p.order))
	if _, ok := p.parts[ContentTypesPath]; ok {
		names = append(names, ContentTypesPath)
	}
	for _, name := range p.order {
		if name != ContentTypesPath {
			names = append(names, name)
		}
	}
	return names
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}
