package implementation

import (
	"context"

	"pc-build-advisor-be/internal/entity"
	"pc-build-advisor-be/internal/mapper"
	"pc-build-advisor-be/internal/model"
	"pc-build-advisor-be/internal/repository/contract"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VectorIndexRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ComponentEmbeddingMapper
}

func NewVectorIndexRepository(db *gorm.DB) contract.VectorIndexRepository {
	return &VectorIndexRepositoryImpl{
		db:     db,
		mapper: mapper.NewComponentEmbeddingMapper(),
	}
}

func (r *VectorIndexRepositoryImpl) Upsert(ctx context.Context, doc *entity.ComponentEmbedding) error {
	m := r.mapper.ToModel(doc)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(m).Error
}

func (r *VectorIndexRepositoryImpl) UpsertBulk(ctx context.Context, docs []*entity.ComponentEmbedding) error {
	if len(docs) == 0 {
		return nil
	}
	models := r.mapper.ToModels(docs)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(models).Error
}

// Search runs pgvector cosine search with the metadata filter pushed into
// SQL. Cosine distance is 1 - cosine_similarity, so similarity is computed
// as 1 - (embedding_value <=> query). Ties fall back to created_at so
// repeated queries stay deterministic.
func (r *VectorIndexRepositoryImpl) Search(ctx context.Context, vector []float32, limit int, filter contract.SearchFilter) ([]*contract.ScoredDocument, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.ComponentEmbedding
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(vector)

	query := r.db.WithContext(ctx).
		Table("component_embeddings").
		Select("component_embeddings.*, 1 - (embedding_value <=> ?) as similarity", queryVector)

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.MaxPrice != nil {
		// unknown price passes the filter; price absence must not hide a document
		query = query.Where("price IS NULL OR price <= ?", *filter.MaxPrice)
	}
	if filter.MinScore > 0 {
		query = query.Where("1 - (embedding_value <=> ?) >= ?", queryVector, filter.MinScore)
	}

	err := query.
		Order("similarity DESC, created_at ASC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredDocument, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredDocument{
			Document:   r.mapper.ToEntity(&res.ComponentEmbedding),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}

func (r *VectorIndexRepositoryImpl) FindByIds(ctx context.Context, ids []string) ([]*entity.ComponentEmbedding, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []*model.ComponentEmbedding
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *VectorIndexRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ComponentEmbedding{}).Count(&count).Error
	return count, err
}

func (r *VectorIndexRepositoryImpl) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.ComponentEmbedding{}).Error
}
