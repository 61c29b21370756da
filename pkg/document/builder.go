package document

import (
	"sort"
	"strconv"
	"strings"

	"pc-build-advisor-be/internal/entity"
	"pc-build-advisor-be/pkg/store"
)

// maxSpecFields bounds how many spec fields make it into the rendered text.
// Catalog rows can carry dozens of columns; past a point extra fields only
// dilute the embedding.
const maxSpecFields = 16

// maxSpecValueLen drops structural or free-text blobs from the rendering.
const maxSpecValueLen = 120

// Build renders a Component into its retrieval Document. The text is the
// cache key surface for embedding reuse, so rendering is fully
// deterministic: identical components produce byte-identical text.
func Build(c entity.Component) store.Document {
	var b strings.Builder

	b.WriteString("Category: ")
	b.WriteString(c.Category)
	b.WriteString("\nName: ")
	b.WriteString(c.Name)

	if c.Price != nil {
		b.WriteString("\nPrice: ")
		b.WriteString(strconv.Itoa(*c.Price))
	}

	keys := make([]string, 0, len(c.Specs))
	for k, v := range c.Specs {
		if !includeSpec(v) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > maxSpecFields {
		keys = keys[:maxSpecFields]
	}

	if len(keys) > 0 {
		b.WriteString("\nSpecs: ")
		for i, k := range keys {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(k)
			b.WriteString("=")
			b.WriteString(c.Specs[k])
		}
	}

	specs := make(map[string]string, len(keys))
	for _, k := range keys {
		specs[k] = c.Specs[k]
	}

	return store.Document{
		ID:       c.Id,
		Category: c.Category,
		Name:     c.Name,
		Price:    c.Price,
		Text:     b.String(),
		Specs:    specs,
	}
}

// BuildAll renders a batch, preserving input order.
func BuildAll(components []entity.Component) []store.Document {
	docs := make([]store.Document, len(components))
	for i, c := range components {
		docs[i] = Build(c)
	}
	return docs
}

// ToComponent maps a retrieved Document back onto the component shape the
// compatibility checks work with.
func ToComponent(doc store.Document) entity.Component {
	return entity.Component{
		Id:       doc.ID,
		Category: doc.Category,
		Name:     doc.Name,
		Price:    doc.Price,
		Specs:    doc.Specs,
	}
}

// includeSpec filters out values that would pollute the embedding text:
// empty, multiline, or oversized blobs.
func includeSpec(v string) bool {
	if strings.TrimSpace(v) == "" {
		return false
	}
	if strings.ContainsAny(v, "\n\r") {
		return false
	}
	return len(v) <= maxSpecValueLen
}
