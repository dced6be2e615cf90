package generate

import (
	"fmt"
	"sort"
	"strings"
)

// Record is one row of input data, keyed by field name.
type Record map[string]string

// Mapping binds template placeholders to record fields. Keys may be given
// with or without their braces: "{{name}}" and "name" are the same
// placeholder.
type Mapping map[string]string

// PlaceholderName strips template delimiters from a placeholder.
func PlaceholderName(placeholder string) string {
	return strings.TrimSpace(strings.NewReplacer("{", "", "}", "").Replace(placeholder))
}

// Values returns the template data for a record. Fields the record lacks
// render as empty strings.
func (m Mapping) Values(record Record) map[string]string {
	values := make(map[string]string, len(m))
	for placeholder, field := range m {
		values[PlaceholderName(placeholder)] = record[field]
	}
	return values
}

// Fields returns the distinct record fields the mapping reads, sorted.
func (m Mapping) Fields() []string {
	seen := make(map[string]bool, len(m))
	fields := make([]string, 0, len(m))
	for _, field := range m {
		if !seen[field] {
			seen[field] = true
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	return fields
}

// Absent returns the mapped fields that no record carries, sorted. Their
// placeholders render empty in every document.
func (m Mapping) Absent(records []Record) []string {
	var absent []string
	for _, field := range m.Fields() {
		found := false
		for _, record := range records {
			if _, found = record[field]; found {
				break
			}
		}
		if !found {
			absent = append(absent, field)
		}
	}
	return absent
}

// Check reports mapped placeholders that the template does not contain.
func (m Mapping) Check(placeholders []string) error {
	present := make(map[string]bool, len(placeholders))
	for _, p := range placeholders {
		present[PlaceholderName(p)] = true
	}

	var missing []string
	for placeholder := range m {
		if name := PlaceholderName(placeholder); !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("placeholders not in template: %s", strings.Join(missing, ", "))
}
