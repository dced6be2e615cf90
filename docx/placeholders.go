package docx

import "regexp"

var placeholderPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// Placeholders returns the distinct {{name}} tags in the document text, in
// order of first appearance. Tags split across runs are found because runs
// are joined before matching.
func (r *Reader) Placeholders() []string {
	var (
		found []string
		seen  = make(map[string]bool)
	)
	for _, block := range r.blocks {
		for _, m := range placeholderPattern.FindAllString(block, -1) {
			if !seen[m] {
				seen[m] = true
				found = append(found, m)
			}
		}
	}
	return found
}
