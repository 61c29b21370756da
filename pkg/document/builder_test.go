package document

import (
	"testing"

	"pc-build-advisor-be/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleComponent() entity.Component {
	price := 429000
	return entity.Component{
		Id:       "cpu-1",
		Category: "cpu",
		Name:     "Ryzen 7 7800X3D",
		Price:    &price,
		Specs: map[string]string{
			"socket": "AM5",
			"cores":  "8",
			"tdp":    "120",
		},
	}
}

func TestBuild_Deterministic(t *testing.T) {
	// map iteration order must not leak into the text: render many times
	// and require byte-identical output
	first := Build(sampleComponent())
	for i := 0; i < 50; i++ {
		again := Build(sampleComponent())
		require.Equal(t, first.Text, again.Text)
	}
}

func TestBuild_Content(t *testing.T) {
	doc := Build(sampleComponent())

	assert.Equal(t, "cpu-1", doc.ID)
	assert.Equal(t, "cpu", doc.Category)
	require.NotNil(t, doc.Price)
	assert.Equal(t, 429000, *doc.Price)
	assert.Equal(t,
		"Category: cpu\nName: Ryzen 7 7800X3D\nPrice: 429000\nSpecs: cores=8; socket=AM5; tdp=120",
		doc.Text)
}

func TestBuild_FiltersStructuralValues(t *testing.T) {
	c := sampleComponent()
	c.Specs["notes"] = "line one\nline two"
	c.Specs["blank"] = "   "

	doc := Build(c)
	assert.NotContains(t, doc.Text, "line one")
	assert.NotContains(t, doc.Text, "blank")
	assert.NotContains(t, doc.Specs, "notes")
}

func TestBuild_NoPrice(t *testing.T) {
	c := sampleComponent()
	c.Price = nil

	doc := Build(c)
	assert.NotContains(t, doc.Text, "Price:")
	assert.Nil(t, doc.Price)
}
