package docstamp

import (
	"go.uber.org/zap"

	"github.com/tsawler/docstamp/merge"
)

// MergeOptions holds configuration for a merge.
type MergeOptions struct {
	logger   *zap.Logger
	geometry merge.PageGeometry
	parts    []merge.RequiredPart

	// Input checking
	checkFormat bool // reject inputs that are not word-processing packages
}

// defaultOptions returns the default merge options.
func defaultOptions() MergeOptions {
	return MergeOptions{
		logger:      zap.NewNop(),
		geometry:    merge.DefaultGeometry(),
		parts:       nil, // nil means merge.DefaultParts()
		checkFormat: true,
	}
}

// clone creates a deep copy of MergeOptions.
func (o MergeOptions) clone() MergeOptions {
	newOpts := MergeOptions{
		logger:      o.logger,
		geometry:    o.geometry,
		checkFormat: o.checkFormat,
	}

	if o.parts != nil {
		newOpts.parts = make([]merge.RequiredPart, len(o.parts))
		copy(newOpts.parts, o.parts)
	}

	return newOpts
}

// mergeOptions converts to the merge package's options.
func (o MergeOptions) mergeOptions() []merge.Option {
	opts := []merge.Option{
		merge.WithLogger(o.logger),
		merge.WithGeometry(o.geometry),
	}
	if o.parts != nil {
		opts = append(opts, merge.WithRequiredParts(o.parts))
	}
	return opts
}
