package generator

import (
	"context"
	"io"
	"log"
	"testing"

	"pc-build-advisor-be/pkg/llm"
	"pc-build-advisor-be/pkg/rag/retriever"
	"pc-build-advisor-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLLM replays canned replies in order.
type scriptedLLM struct {
	replies []string
	calls   int
}

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	reply := s.replies[s.calls]
	if s.calls < len(s.replies)-1 {
		s.calls++
	}
	return reply, nil
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func evidence() []retriever.Result {
	price := 429000
	return []retriever.Result{
		{
			Document: store.Document{
				ID:       "cpu-1",
				Category: "cpu",
				Name:     "Ryzen 7 7800X3D",
				Price:    &price,
				Specs:    map[string]string{"socket": "AM5"},
			},
			Score: 0.92,
			Rank:  1,
		},
	}
}

const validReply = `{"analysis": "Strong gaming pick within budget.", "components": [{"category": "cpu", "name": "Ryzen 7 7800X3D", "price": 429000, "features": ["8 cores", "3D V-Cache"]}]}`

func newTestGenerator(replies ...string) (*Generator, *scriptedLLM) {
	provider := &scriptedLLM{replies: replies}
	return NewGenerator(provider, log.New(io.Discard, "", 0)), provider
}

func TestGenerate_ValidJSON(t *testing.T) {
	g, _ := newTestGenerator(validReply)

	rec, err := g.Generate(context.Background(), "gaming CPU", evidence(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Strong gaming pick within budget.", rec.Analysis)
	require.Len(t, rec.Components, 1)
	assert.Equal(t, "Ryzen 7 7800X3D", rec.Components[0].Name)
}

func TestGenerate_FencedJSONAccepted(t *testing.T) {
	g, _ := newTestGenerator("```json\n" + validReply + "\n```")

	rec, err := g.Generate(context.Background(), "gaming CPU", evidence(), nil)
	require.NoError(t, err)
	assert.Len(t, rec.Components, 1)
}

func TestGenerate_NonJSONRetriesOnceThenSucceeds(t *testing.T) {
	g, provider := newTestGenerator("Sure! Here are my thoughts...", validReply)

	rec, err := g.Generate(context.Background(), "gaming CPU", evidence(), nil)
	require.NoError(t, err)
	assert.Len(t, rec.Components, 1)
	assert.Equal(t, 1, provider.calls, "expected exactly one retry")
}

func TestGenerate_StillMalformedReturnsTypedError(t *testing.T) {
	g, _ := newTestGenerator("not json", "still not json")

	rec, err := g.Generate(context.Background(), "gaming CPU", evidence(), nil)
	require.Error(t, err)
	assert.Nil(t, rec, "no recommendation may be fabricated")

	var malformed *MalformedError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "still not json", malformed.Raw)
}

func TestGenerate_UngroundedComponentsRejected(t *testing.T) {
	invented := `{"analysis": "ok", "components": [{"category": "cpu", "name": "Imaginary CPU 9999X", "price": 1, "features": []}]}`
	g, _ := newTestGenerator(invented, invented)

	_, err := g.Generate(context.Background(), "gaming CPU", evidence(), nil)
	var malformed *MalformedError
	require.ErrorAs(t, err, &malformed)
}

func TestGenerate_EmptyAnalysisIsMalformed(t *testing.T) {
	g, _ := newTestGenerator(`{"analysis": "  ", "components": []}`, validReply)

	rec, err := g.Generate(context.Background(), "gaming CPU", evidence(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Analysis)
}
