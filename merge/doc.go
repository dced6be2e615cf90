// Package merge combines independently rendered DOCX packages into one.
//
// Each input package is one rendered record. [Merge] keeps the first
// package's styles, settings, theme, fonts, headers and footers, appends
// every record's body in order with a page break between records, copies
// each record's media under collision-free names, and finishes with a
// single trailing section:
//
//	out, err := merge.Merge(pkgs, merge.WithLogger(logger))
//	if err != nil {
//	    var recErr *merge.RecordError
//	    if errors.As(err, &recErr) {
//	        // recErr.Index identifies the failing input
//	    }
//	}
//
// Parts the output must contain ([DefaultParts]) are synthesized from
// fixed defaults when the first package lacks them.
package merge
