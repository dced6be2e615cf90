// Package docstamp merges rendered Word documents into one.
//
// Basic usage:
//
//	err := docstamp.Open("record1.docx", "record2.docx").WriteFile("merged.docx")
//
// With options:
//
//	data, err := docstamp.Open(files...).
//	    Logger(logger).
//	    PageSize(11906, 16838).
//	    Bytes()
//
// Each record keeps its own body and images; the first input supplies the
// styles, theme, headers and footers of the result, and records are
// separated by page breaks. For finer control use the merge, docx and opc
// packages directly, or generate to render records from a template first.
package docstamp

import (
	"github.com/tsawler/docstamp/docx"
	"github.com/tsawler/docstamp/merge"
	"github.com/tsawler/docstamp/opc"
)

// ContentType is the media type of a merged document.
const ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Errors callers can test for with errors.Is.
var (
	ErrCorruptArchive = opc.ErrCorruptArchive
	ErrMissingBody    = docx.ErrMissingBody
	ErrEmptyMergeSet  = merge.ErrEmptyMergeSet
)

// RecordError identifies the input a merge failed on.
type RecordError = merge.RecordError

// Open returns a Merger over the given files, in order. Files are read when
// a terminal operation runs.
//
// Example:
//
//	err := docstamp.Open("a.docx", "b.docx").WriteFile("out.docx")
func Open(filenames ...string) *Merger {
	m := newMerger()
	for _, name := range filenames {
		m.sources = append(m.sources, source{filename: name})
	}
	return m
}

// FromBytes returns a Merger over serialized packages.
func FromBytes(inputs ...[]byte) *Merger {
	m := newMerger()
	for _, data := range inputs {
		m.sources = append(m.sources, source{data: data})
	}
	return m
}

// FromPackages returns a Merger over opened packages. The packages are not
// modified.
func FromPackages(pkgs ...*opc.Package) *Merger {
	m := newMerger()
	for _, pkg := range pkgs {
		m.sources = append(m.sources, source{pkg: pkg})
	}
	return m
}

// Placeholders lists the distinct {{name}} tags in a template file.
//
// Example:
//
//	tags, err := docstamp.Placeholders("template.docx")
func Placeholders(filename string) ([]string, error) {
	r, err := docx.Open(filename)
	if err != nil {
		return nil, err
	}
	return r.Placeholders(), nil
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	data := docstamp.Must(docstamp.Open("a.docx", "b.docx").Bytes())
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
