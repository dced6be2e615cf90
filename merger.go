package docstamp

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/tsawler/docstamp/docx"
	"github.com/tsawler/docstamp/format"
	"github.com/tsawler/docstamp/merge"
	"github.com/tsawler/docstamp/opc"
)

// ErrUnsupportedFormat is returned for inputs that are recognizably not
// word-processing documents.
var ErrUnsupportedFormat = errors.New("not a word-processing document")

// source is one input, in whichever form it was supplied.
type source struct {
	filename string
	data     []byte
	pkg      *opc.Package
}

// Merger provides a fluent interface for merging documents.
// Each configuration method returns a new Merger instance, making it
// safe for concurrent use and allowing method chaining.
type Merger struct {
	sources []source
	options MergeOptions
}

func newMerger() *Merger {
	return &Merger{options: defaultOptions()}
}

// clone creates a shallow copy of the Merger with a deep copy of options.
func (m *Merger) clone() *Merger {
	return &Merger{
		sources: append([]source(nil), m.sources...),
		options: m.options.clone(),
	}
}

// ============================================================================
// Configuration Methods (return new Merger instance)
// ============================================================================

// Add appends files to the inputs.
func (m *Merger) Add(filenames ...string) *Merger {
	n := m.clone()
	for _, name := range filenames {
		n.sources = append(n.sources, source{filename: name})
	}
	return n
}

// AddBytes appends serialized packages to the inputs.
func (m *Merger) AddBytes(inputs ...[]byte) *Merger {
	n := m.clone()
	for _, data := range inputs {
		n.sources = append(n.sources, source{data: data})
	}
	return n
}

// Logger sets the logger for merge diagnostics.
func (m *Merger) Logger(logger *zap.Logger) *Merger {
	n := m.clone()
	if logger != nil {
		n.options.logger = logger
	}
	return n
}

// Geometry sets the page size and margins of the result.
func (m *Merger) Geometry(geom merge.PageGeometry) *Merger {
	n := m.clone()
	n.options.geometry = geom
	return n
}

// PageSize sets the page width and height in twentieths of a point.
//
// Example:
//
//	docstamp.Open(files...).PageSize(11906, 16838) // A4
func (m *Merger) PageSize(width, height int) *Merger {
	n := m.clone()
	n.options.geometry.Width = width
	n.options.geometry.Height = height
	return n
}

// Margins sets the page margins in twentieths of a point.
func (m *Merger) Margins(top, right, bottom, left int) *Merger {
	n := m.clone()
	n.options.geometry.Top = top
	n.options.geometry.Right = right
	n.options.geometry.Bottom = bottom
	n.options.geometry.Left = left
	return n
}

// RequiredParts replaces the parts synthesized when the first input lacks
// them.
func (m *Merger) RequiredParts(parts []merge.RequiredPart) *Merger {
	n := m.clone()
	n.options.parts = append([]merge.RequiredPart{}, parts...)
	return n
}

// SkipFormatCheck lets inputs through without checking that they are
// word-processing packages.
func (m *Merger) SkipFormatCheck() *Merger {
	n := m.clone()
	n.options.checkFormat = false
	return n
}

// ============================================================================
// Terminal Operations
// ============================================================================

// Package merges the inputs and returns the resulting package.
func (m *Merger) Package() (*opc.Package, error) {
	if len(m.sources) == 0 {
		return nil, ErrEmptyMergeSet
	}

	pkgs := make([]*opc.Package, len(m.sources))
	for i, src := range m.sources {
		pkg, err := m.load(src)
		if err != nil {
			return nil, &RecordError{Index: i, Err: err}
		}
		pkgs[i] = pkg
	}

	return merge.Merge(pkgs, m.options.mergeOptions()...)
}

// Bytes merges the inputs and returns the serialized result.
func (m *Merger) Bytes() ([]byte, error) {
	pkg, err := m.Package()
	if err != nil {
		return nil, err
	}
	return pkg.Serialize()
}

// WriteTo merges the inputs and writes the result to w.
func (m *Merger) WriteTo(w io.Writer) (int64, error) {
	pkg, err := m.Package()
	if err != nil {
		return 0, err
	}
	return pkg.WriteTo(w)
}

// WriteFile merges the inputs and writes the result to filename.
func (m *Merger) WriteFile(filename string) error {
	data, err := m.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filename, err)
	}
	return nil
}

// Text merges the inputs and returns the plain text of the result, with
// records separated by docx.PageBreak.
func (m *Merger) Text() (string, error) {
	pkg, err := m.Package()
	if err != nil {
		return "", err
	}
	r, err := docx.NewReader(pkg)
	if err != nil {
		return "", err
	}
	return r.Text()
}

// load opens one input and checks its format.
func (m *Merger) load(src source) (*opc.Package, error) {
	if src.pkg != nil {
		if err := m.reject(format.DetectPackage(src.pkg)); err != nil {
			return nil, err
		}
		return src.pkg, nil
	}

	data := src.data
	if src.filename != "" {
		if err := m.reject(format.Detect(src.filename)); err != nil {
			return nil, fmt.Errorf("%s: %w", src.filename, err)
		}
		var err error
		if data, err = os.ReadFile(src.filename); err != nil {
			return nil, fmt.Errorf("reading file: %w", err)
		}
	}

	if err := m.reject(format.DetectFromMagic(data)); err != nil {
		return nil, err
	}
	pkg, err := opc.Open(data)
	if err != nil {
		if src.filename != "" {
			return nil, fmt.Errorf("%s: %w", src.filename, err)
		}
		return nil, err
	}
	if err := m.reject(format.DetectPackage(pkg)); err != nil {
		return nil, err
	}
	return pkg, nil
}

// reject returns ErrUnsupportedFormat for recognized formats that are not
// word-processing documents, unless format checks are off.
func (m *Merger) reject(f format.Format) error {
	if !m.options.checkFormat || f == format.Unknown || f.WordProcessing() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
}
