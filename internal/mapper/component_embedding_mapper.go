package mapper

import (
	"fmt"

	"pc-build-advisor-be/internal/entity"
	"pc-build-advisor-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type ComponentEmbeddingMapper struct{}

func NewComponentEmbeddingMapper() *ComponentEmbeddingMapper {
	return &ComponentEmbeddingMapper{}
}

func (m *ComponentEmbeddingMapper) ToEntity(e *model.ComponentEmbedding) *entity.ComponentEmbedding {
	if e == nil {
		return nil
	}

	var price *int
	if e.Price != nil {
		p := int(*e.Price)
		price = &p
	}

	specs := make(map[string]string, len(e.Specs))
	for k, v := range e.Specs {
		specs[k] = fmt.Sprintf("%v", v)
	}

	var updatedAt = e.UpdatedAt
	return &entity.ComponentEmbedding{
		Id:             e.Id,
		Document:       e.Document,
		EmbeddingValue: e.EmbeddingValue.Slice(),
		Category:       e.Category,
		Name:           e.Name,
		Price:          price,
		Specs:          specs,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      &updatedAt,
	}
}

func (m *ComponentEmbeddingMapper) ToModel(e *entity.ComponentEmbedding) *model.ComponentEmbedding {
	if e == nil {
		return nil
	}

	var price *int64
	if e.Price != nil {
		p := int64(*e.Price)
		price = &p
	}

	specs := make(datatypes.JSONMap, len(e.Specs))
	for k, v := range e.Specs {
		specs[k] = v
	}

	return &model.ComponentEmbedding{
		Id:             e.Id,
		Document:       e.Document,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		Category:       e.Category,
		Name:           e.Name,
		Price:          price,
		Specs:          specs,
		CreatedAt:      e.CreatedAt,
	}
}

func (m *ComponentEmbeddingMapper) ToEntities(models []*model.ComponentEmbedding) []*entity.ComponentEmbedding {
	entities := make([]*entity.ComponentEmbedding, len(models))
	for i, e := range models {
		entities[i] = m.ToEntity(e)
	}
	return entities
}

func (m *ComponentEmbeddingMapper) ToModels(entities []*entity.ComponentEmbedding) []*model.ComponentEmbedding {
	models := make([]*model.ComponentEmbedding, len(entities))
	for i, e := range entities {
		models[i] = m.ToModel(e)
	}
	return models
}
