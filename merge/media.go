package merge

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/tsawler/docstamp/docx"
	"github.com/tsawler/docstamp/opc"
)

// relsNamespace is the URI a prefix must be bound to for its id attributes
// to be remapped.
const relsNamespace = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

// RebaseMedia copies the media of the record at index into out under names
// tagged with the index, registers record-scoped relationships for them in
// rels, and returns a copy of body whose references point at the copies.
// The paths written to out are returned in name order.
func RebaseMedia(out *opc.Package, rels *docx.Relationships, index int, src *opc.Package, body *docx.Body) (*docx.Body, []string, error) {
	assets := docx.ListMedia(src)
	if len(assets) == 0 {
		return body.WithContent(body.Content), nil, nil
	}

	renamed := make(map[string]string, len(assets))
	written := make([]string, 0, len(assets))
	for _, asset := range assets {
		name := rebasedName(out, asset.Name, index)
		renamed[asset.Name] = name
		target := docx.MediaPrefix + name
		out.SetPart(target, append([]byte(nil), asset.Data...))
		written = append(written, target)
	}

	mediaRels, err := docx.MediaRelationships(src)
	if err != nil {
		return nil, nil, err
	}
	ids := make(map[string]string, len(mediaRels))
	for _, rel := range mediaRels {
		name, ok := renamed[strings.TrimPrefix(docx.ResolveTarget(rel.Target), docx.MediaPrefix)]
		if !ok {
			continue
		}
		id := scopedID(index, rel.ID)
		if !rels.Has(id) {
			rels.Add(docx.Relationship{ID: id, Type: rel.Type, Target: "media/" + name})
		}
		ids[rel.ID] = id
	}

	content := remapRelationshipIDs(body.Content, relsPrefixes(body), ids)
	content = renameMediaReferences(content, renamed)
	return body.WithContent(content), written, nil
}

// RebaseLinks registers record-scoped copies of the external relationships
// the body references, such as hyperlinks, and returns a copy of body whose
// references use them. It also returns how many relationships it added.
func RebaseLinks(rels *docx.Relationships, index int, src *opc.Package, body *docx.Body) (*docx.Body, int, error) {
	external, err := docx.ExternalRelationships(src)
	if err != nil {
		return nil, 0, err
	}

	ids := make(map[string]string, len(external))
	added := 0
	for _, rel := range external {
		if !strings.Contains(body.Content, `"`+rel.ID+`"`) {
			continue
		}
		id := scopedID(index, rel.ID)
		if !rels.Has(id) {
			rels.Add(docx.Relationship{ID: id, Type: rel.Type, Target: rel.Target, TargetMode: rel.TargetMode})
			added++
		}
		ids[rel.ID] = id
	}

	content := remapRelationshipIDs(body.Content, relsPrefixes(body), ids)
	return body.WithContent(content), added, nil
}

func scopedID(index int, id string) string {
	return fmt.Sprintf("rec%d_%s", index, id)
}

// rebasedName returns <stem>_<index><ext>, adding a counter when that name
// is already taken in out.
func rebasedName(out *opc.Package, name string, index int) string {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := fmt.Sprintf("%s_%d%s", stem, index, ext)
	for n := 2; out.Has(docx.MediaPrefix + candidate); n++ {
		candidate = fmt.Sprintf("%s_%d_%d%s", stem, index, n, ext)
	}
	return candidate
}

// relsPrefixes returns the prefixes the body's root binds to the
// relationships namespace. r is assumed when the root declared none.
func relsPrefixes(body *docx.Body) []string {
	var prefixes []string
	for _, ns := range body.Namespaces {
		if ns.URI == relsNamespace {
			prefixes = append(prefixes, ns.Prefix)
		}
	}
	if len(prefixes) == 0 {
		prefixes = []string{"r"}
	}
	return prefixes
}

// remapRelationshipIDs rewrites embed, link, id and pict attributes whose
// value appears in ids. Other relationship references are left alone.
func remapRelationshipIDs(content string, prefixes []string, ids map[string]string) string {
	if len(ids) == 0 {
		return content
	}

	quoted := make([]string, len(prefixes))
	for i, p := range prefixes {
		quoted[i] = regexp.QuoteMeta(p)
	}
	attr := regexp.MustCompile(`\b((?:` + strings.Join(quoted, "|") + `):(?:embed|link|id|pict)\s*=\s*)"([^"]*)"`)

	return attr.ReplaceAllStringFunc(content, func(m string) string {
		sub := attr.FindStringSubmatch(m)
		id, ok := ids[sub[2]]
		if !ok {
			return m
		}
		return sub[1] + `"` + id + `"`
	})
}

// renameMediaReferences rewrites media/<old> to media/<new> in one pass.
// Longer names are tried first so one name never clobbers a longer one.
func renameMediaReferences(content string, renamed map[string]string) string {
	olds := make([]string, 0, len(renamed))
	for old := range renamed {
		olds = append(olds, old)
	}
	sort.Slice(olds, func(i, j int) bool {
		if len(olds[i]) != len(olds[j]) {
			return len(olds[i]) > len(olds[j])
		}
		return olds[i] < olds[j]
	})

	pairs := make([]string, 0, 2*len(olds))
	for _, old := range olds {
		pairs = append(pairs, "media/"+old, "media/"+renamed[old])
	}
	return strings.NewReplacer(pairs...).Replace(content)
}
