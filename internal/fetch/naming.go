package fetch

import (
	"regexp"

	"github.com/mtfreepress/capitol-pdf-mirror/internal/legislature"
)

// duplicateSuffix matches "name(2).pdf" style duplicate markers.
var duplicateSuffix = regexp.MustCompile(`^(.+?)(?:\([0-9]+\))?(\.[^.]+)$`)

// baseFilename strips a "(N)" duplicate suffix, so every version of the same
// amendment maps to one base name.
func baseFilename(name string) string {
	m := duplicateSuffix.FindStringSubmatch(name)
	if m == nil {
		return name
	}
	return m[1] + m[2]
}

// latestDocument picks the document with the highest ID, or nil when empty.
// The API assigns IDs monotonically, so the highest ID is the newest upload.
func latestDocument(docs []legislature.Document) *legislature.Document {
	var latest *legislature.Document
	for i := range docs {
		if latest == nil || docs[i].ID > latest.ID {
			latest = &docs[i]
		}
	}
	return latest
}

// dedupeAmendments collapses documents sharing a base filename to a single
// primary version: the cleanly-named one when present, otherwise the highest
// ID.
func dedupeAmendments(docs []legislature.Document) []legislature.Document {
	grouped := make(map[string][]legislature.Document)
	var order []string
	for _, doc := range docs {
		base := baseFilename(doc.FileName)
		if _, seen := grouped[base]; !seen {
			order = append(order, base)
		}
		grouped[base] = append(grouped[base], doc)
	}

	primaries := make([]legislature.Document, 0, len(order))
	for _, base := range order {
		versions := grouped[base]
		primary := versions[0]
		found := false
		for _, v := range versions {
			if v.FileName == base {
				primary = v
				found = true
				break
			}
		}
		if !found {
			for _, v := range versions {
				if v.ID > primary.ID {
					primary = v
				}
			}
		}
		primaries = append(primaries, primary)
	}
	return primaries
}
