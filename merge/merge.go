package merge

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tsawler/docstamp/docx"
	"github.com/tsawler/docstamp/opc"
)

// Option configures a merge.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	geometry PageGeometry
	parts    []RequiredPart
}

func defaultOptions() options {
	return options{
		logger:   zap.NewNop(),
		geometry: DefaultGeometry(),
		parts:    DefaultParts(),
	}
}

// WithLogger sets the logger used for merge diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithGeometry sets the page geometry of the output section.
func WithGeometry(geom PageGeometry) Option {
	return func(o *options) {
		o.geometry = geom
	}
}

// WithRequiredParts replaces the table of parts synthesized when missing.
func WithRequiredParts(parts []RequiredPart) Option {
	return func(o *options) {
		o.parts = parts
	}
}

// Merge combines packages into one, in order. The first package is the
// structural base: its styles, settings, relationships, theme, fonts and
// header/footer parts seed the output, and its section references are the
// ones kept. The inputs are not modified.
func Merge(pkgs []*opc.Package, opts ...Option) (*opc.Package, error) {
	if len(pkgs) == 0 {
		return nil, ErrEmptyMergeSet
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger

	for i, pkg := range pkgs {
		if pkg == nil {
			return nil, &RecordError{Index: i, Err: fmt.Errorf("%w: nil package", docx.ErrMissingBody)}
		}
	}

	out := pkgs[0].Clone()
	rels, seeded, err := baseRelationships(out, o.parts)
	if err != nil {
		return nil, &RecordError{Index: 0, Err: err}
	}
	relCount := len(rels.Relationships)

	bodies := make([]*docx.Body, 0, len(pkgs))
	for i, pkg := range pkgs {
		body, err := docx.ExtractBody(pkg)
		if err != nil {
			return nil, &RecordError{Index: i, Err: err}
		}

		rebased, written, err := RebaseMedia(out, rels, i, pkg, body)
		if err != nil {
			return nil, &RecordError{Index: i, Err: fmt.Errorf("rebasing media: %w", err)}
		}

		// the base's own links are already in rels
		links := 0
		if i > 0 {
			if rebased, links, err = RebaseLinks(rels, i, pkg, rebased); err != nil {
				return nil, &RecordError{Index: i, Err: fmt.Errorf("rebasing links: %w", err)}
			}
		}
		log.Debug("record collected",
			zap.Int("index", i),
			zap.Int("body_bytes", len(rebased.Content)),
			zap.Strings("media", written),
			zap.Int("links", links))
		bodies = append(bodies, rebased)
	}

	refs, err := docx.ExtractSectionRefs(pkgs[0])
	if err != nil {
		return nil, &RecordError{Index: 0, Err: err}
	}

	document, err := Compose(bodies, refs, o.geometry)
	if err != nil {
		return nil, err
	}
	out.SetPart(docx.DocumentPath, []byte(document))

	if seeded || len(rels.Relationships) != relCount {
		out.SetPart(docx.DocumentRelsPath, rels.Marshal())
	}

	if added := EnsureRequiredParts(out, o.parts); len(added) > 0 {
		log.Debug("synthesized missing parts", zap.Strings("parts", added))
	}

	if _, err := EnsureContentTypes(out); err != nil {
		log.Warn("content types left unreconciled", zap.Error(err))
	}

	log.Debug("merge complete",
		zap.Int("records", len(pkgs)),
		zap.Int("header_footer_refs", len(refs.Refs)),
		zap.Int("parts", out.Len()))
	return out, nil
}

// MergeBytes opens each input, merges them and serializes the result.
func MergeBytes(inputs [][]byte, opts ...Option) ([]byte, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyMergeSet
	}

	pkgs := make([]*opc.Package, len(inputs))
	for i, data := range inputs {
		pkg, err := opc.Open(data)
		if err != nil {
			return nil, &RecordError{Index: i, Err: err}
		}
		pkgs[i] = pkg
	}

	out, err := Merge(pkgs, opts...)
	if err != nil {
		return nil, err
	}
	return out.Serialize()
}

// baseRelationships parses the base's document relationships, or the
// default table entry when the base has none. seeded reports the latter.
func baseRelationships(out *opc.Package, parts []RequiredPart) (rels *docx.Relationships, seeded bool, err error) {
	data, ok := out.Part(docx.DocumentRelsPath)
	if !ok {
		data, ok = lookupPart(parts, docx.DocumentRelsPath)
		if !ok {
			return &docx.Relationships{}, true, nil
		}
		seeded = true
	}

	rels, err = docx.ParseRelationships(data)
	if err != nil {
		return nil, false, fmt.Errorf("parsing %s: %w", docx.DocumentRelsPath, err)
	}
	return rels, seeded, nil
}
