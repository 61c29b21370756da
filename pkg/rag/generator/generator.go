package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"pc-build-advisor-be/pkg/llm"
	"pc-build-advisor-be/pkg/rag/prompt"
	"pc-build-advisor-be/pkg/rag/retriever"
)

// MalformedError means the completion service failed to produce the
// requested JSON shape even after the strict retry. Raw carries the last
// reply verbatim for diagnostics. A recommendation is never fabricated in
// its place.
type MalformedError struct {
	Raw string
}

func (e *MalformedError) Error() string {
	return "generator: completion service returned malformed output"
}

// RecommendedComponent is one entry of a structured recommendation.
type RecommendedComponent struct {
	Category string   `json:"category"`
	Name     string   `json:"name"`
	Price    int      `json:"price"`
	Features []string `json:"features"`
}

// Recommendation is the fixed response shape requested from the
// completion service.
type Recommendation struct {
	Analysis   string                 `json:"analysis"`
	Components []RecommendedComponent `json:"components"`
}

// Generator grounds retrieved candidates and conversation context into a
// structured recommendation. Stateless per call: continuity across turns
// is the caller's job.
type Generator struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewGenerator(llmProvider llm.LLMProvider, logger *log.Logger) *Generator {
	return &Generator{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Generate builds the grounding prompt, calls the completion service, and
// validates the reply against the expected shape. One retry with a
// stricter instruction is attempted on a malformed reply; after that the
// caller gets a MalformedError carrying the raw text.
func (g *Generator) Generate(ctx context.Context, userQuery string, results []retriever.Result, history []llm.Message) (*Recommendation, error) {
	promptText := prompt.NewGroundedBuilder(userQuery, results).Build()

	raw, err := g.complete(ctx, promptText, history)
	if err != nil {
		return nil, err
	}

	rec, ok := g.parseAndValidate(raw, results)
	if ok {
		return rec, nil
	}

	g.logger.Printf("[WARN] Malformed generation, retrying with strict instruction: %.200s", raw)

	strictPrompt := prompt.NewGroundedBuilder(userQuery, results).Strict().Build()
	raw, err = g.complete(ctx, strictPrompt, history)
	if err != nil {
		return nil, err
	}

	rec, ok = g.parseAndValidate(raw, results)
	if !ok {
		g.logger.Printf("[ERROR] Generation still malformed after retry: %.200s", raw)
		return nil, &MalformedError{Raw: raw}
	}
	return rec, nil
}

func (g *Generator) complete(ctx context.Context, promptText string, history []llm.Message) (string, error) {
	fullHistory := append(append([]llm.Message{}, history...), llm.Message{Role: "user", Content: promptText})

	raw, err := g.llmProvider.Chat(ctx, fullHistory, llm.WithTemperature(0.3))
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	return raw, nil
}

// parseAndValidate enforces the response contract. The reply is untrusted:
// fences are stripped, the first JSON object is extracted, the shape is
// checked, and component entries are kept only when their name appears in
// the retrieved evidence (the grounding constraint).
func (g *Generator) parseAndValidate(raw string, results []retriever.Result) (*Recommendation, bool) {
	jsonText, ok := extractJSONObject(raw)
	if !ok {
		return nil, false
	}

	var rec Recommendation
	if err := json.Unmarshal([]byte(jsonText), &rec); err != nil {
		return nil, false
	}
	if strings.TrimSpace(rec.Analysis) == "" {
		return nil, false
	}

	known := make(map[string]bool, len(results))
	for _, res := range results {
		known[strings.ToLower(res.Document.Name)] = true
	}

	grounded := rec.Components[:0]
	for _, c := range rec.Components {
		if c.Category == "" || c.Name == "" {
			continue
		}
		if len(results) > 0 && !known[strings.ToLower(c.Name)] {
			// ungrounded invention, drop it
			continue
		}
		grounded = append(grounded, c)
	}

	if len(rec.Components) > 0 && len(grounded) == 0 {
		// every entry was invented: treat the reply as malformed rather
		// than returning a silently emptied recommendation
		return nil, false
	}
	rec.Components = grounded
	return &rec, true
}

// extractJSONObject strips markdown fences and returns the first balanced
// top-level JSON object, quote-aware.
func extractJSONObject(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if inString {
				i++
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}
