// Package generate renders a template once per record and merges the
// results into a single document.
//
// Rendering is delegated to a [Renderer]; generate only fans records out,
// collects the rendered packages in record order and hands them to the
// merge engine. A failed record fails the whole run and nothing is stored.
package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tsawler/docstamp/merge"
	"github.com/tsawler/docstamp/storage"
)

// DefaultConcurrency is the number of records rendered at once when a
// pipeline does not say.
const DefaultConcurrency = 4

// Renderer turns a template and one record's values into a complete
// document package.
type Renderer interface {
	Render(ctx context.Context, template []byte, values map[string]string) ([]byte, error)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, template []byte, values map[string]string) ([]byte, error)

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, template []byte, values map[string]string) ([]byte, error) {
	return f(ctx, template, values)
}

// Pipeline renders records and merges them.
type Pipeline struct {
	Renderer Renderer
	Mapping  Mapping

	// Store receives the merged document. Nil skips storing.
	Store storage.Store

	// NumberKey, when set, adds a value "<NumberPrefix>-<n>" under that
	// placeholder name, n counting records from one.
	NumberKey    string
	NumberPrefix string

	Concurrency  int
	Timeout      time.Duration
	Logger       *zap.Logger
	MergeOptions []merge.Option
}

// Result is the output of a successful run.
type Result struct {
	ID       string // storage id, empty without a store
	Document []byte
	Records  int
}

// Run renders every record, merges the packages in record order and stores
// the result. All records are rendered before failing; render failures are
// returned together in record order.
func (p *Pipeline) Run(ctx context.Context, template []byte, records []Record) (*Result, error) {
	if len(records) == 0 {
		return nil, merge.ErrEmptyMergeSet
	}
	if p.Renderer == nil {
		return nil, errors.New("generate: no renderer configured")
	}

	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if absent := p.Mapping.Absent(records); len(absent) > 0 {
		log.Warn("mapped fields absent from all records", zap.Strings("fields", absent))
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	start := time.Now()
	docs, err := p.render(ctx, template, records)
	if err != nil {
		return nil, err
	}
	log.Debug("records rendered", zap.Int("records", len(docs)), zap.Duration("elapsed", time.Since(start)))

	opts := append([]merge.Option{merge.WithLogger(log)}, p.MergeOptions...)
	merged, err := merge.MergeBytes(docs, opts...)
	if err != nil {
		return nil, fmt.Errorf("merging documents: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{Document: merged, Records: len(records)}
	if p.Store != nil {
		id, err := p.Store.Save(ctx, merged)
		if err != nil {
			return nil, fmt.Errorf("storing document: %w", err)
		}
		result.ID = id
	}

	log.Info("document generated",
		zap.String("id", result.ID),
		zap.Int("records", result.Records),
		zap.Int("bytes", len(merged)),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// render runs the renderer for every record, keeping results by index.
func (p *Pipeline) render(ctx context.Context, template []byte, records []Record) ([][]byte, error) {
	limit := p.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	docs := make([][]byte, len(records))
	errs := make([]error, len(records))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, record := range records {
		values := p.values(i, record)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			doc, err := p.Renderer.Render(ctx, template, values)
			if err != nil {
				errs[i] = renderError(i, err)
				return nil
			}
			docs[i] = doc
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return docs, nil
}

// values builds a record's template data. Without a mapping, record
// fields are used as placeholder names directly.
func (p *Pipeline) values(index int, record Record) map[string]string {
	var values map[string]string
	if len(p.Mapping) == 0 {
		values = make(map[string]string, len(record)+1)
		for field, value := range record {
			values[field] = value
		}
	} else {
		values = p.Mapping.Values(record)
	}
	if p.NumberKey != "" {
		values[PlaceholderName(p.NumberKey)] = fmt.Sprintf("%s-%d", p.NumberPrefix, index+1)
	}
	return values
}

// renderError tags a renderer failure with its record index.
func renderError(index int, err error) error {
	var re *RenderError
	if errors.As(err, &re) {
		tagged := *re
		tagged.Index = index
		return &tagged
	}
	return &RenderError{Index: index, Explanation: err.Error(), Err: err}
}
