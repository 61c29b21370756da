package prompt

import (
	"sort"
	"strconv"
	"strings"

	"pc-build-advisor-be/pkg/rag/retriever"
)

// GroundedBuilder renders the recommendation prompt: retrieved catalog
// evidence first, then the task, the response contract, and the user query.
// The model is told to recommend only from the evidence block.
type GroundedBuilder struct {
	query   string
	results []retriever.Result
	strict  bool
}

func NewGroundedBuilder(query string, results []retriever.Result) *GroundedBuilder {
	return &GroundedBuilder{
		query:   query,
		results: results,
	}
}

// Strict toggles the harder instruction used on the retry after a
// malformed reply.
func (b *GroundedBuilder) Strict() *GroundedBuilder {
	b.strict = true
	return b
}

func (b *GroundedBuilder) Build() string {
	var prompt strings.Builder

	b.writeCatalogEvidence(&prompt)
	b.writeTask(&prompt)
	b.writeResponseContract(&prompt)
	b.writeUserQuery(&prompt)

	return prompt.String()
}

func (b *GroundedBuilder) writeCatalogEvidence(prompt *strings.Builder) {
	prompt.WriteString("<catalog_evidence>\n")
	for _, res := range b.results {
		doc := res.Document
		prompt.WriteString("- [")
		prompt.WriteString(doc.Category)
		prompt.WriteString("] ")
		prompt.WriteString(doc.Name)
		if doc.Price != nil {
			prompt.WriteString(" | price: ")
			prompt.WriteString(strconv.Itoa(*doc.Price))
		}
		if len(doc.Specs) > 0 {
			prompt.WriteString(" | ")
			prompt.WriteString(specLine(doc.Specs))
		}
		prompt.WriteString("\n")
	}
	prompt.WriteString("</catalog_evidence>\n\n")
}

func (b *GroundedBuilder) writeTask(prompt *strings.Builder) {
	prompt.WriteString("<task>\n")
	prompt.WriteString("You are a PC hardware advisor. Recommend components for the user's request.\n")
	prompt.WriteString("Only recommend items listed in <catalog_evidence>. Never invent a product, price or spec that is not in the evidence.\n")
	prompt.WriteString("</task>\n\n")
}

func (b *GroundedBuilder) writeResponseContract(prompt *strings.Builder) {
	prompt.WriteString("<response_format>\n")
	prompt.WriteString("Reply with a single JSON object, no other text:\n")
	prompt.WriteString(`{"analysis": "<short reasoning for the user>", "components": [{"category": "...", "name": "...", "price": 0, "features": ["..."]}]}`)
	prompt.WriteString("\n")
	if b.strict {
		prompt.WriteString("IMPORTANT: your previous reply was not valid JSON in this exact shape. ")
		prompt.WriteString("Output ONLY the JSON object. No markdown fences, no commentary, no trailing text.\n")
	}
	prompt.WriteString("</response_format>\n\n")
}

func (b *GroundedBuilder) writeUserQuery(prompt *strings.Builder) {
	prompt.WriteString("<user_request>\n")
	prompt.WriteString(b.query)
	prompt.WriteString("\n</user_request>\n")
}

// specLine renders a handful of spec fields inline, sorted so the prompt
// text stays reproducible in the LLM logs.
func specLine(specs map[string]string) string {
	keys := make([]string, 0, len(specs))
	for k := range specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 6 {
		keys = keys[:6]
	}

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(specs[k])
	}
	return b.String()
}
