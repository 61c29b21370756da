package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type ComponentEmbedding struct {
	Id             string          `gorm:"type:varchar(128);primaryKey"`
	Document       string          `gorm:"type:text"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"` // nomic-embed-text / text-embedding-004 use 768 dimensions
	Category       string          `gorm:"type:varchar(64);index"`
	Name           string          `gorm:"type:varchar(255)"`
	Price          *int64          `gorm:"index"`
	Specs          datatypes.JSONMap
	CreatedAt      time.Time `gorm:"autoCreateTime;index"` // insertion order breaks score ties
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (ComponentEmbedding) TableName() string {
	return "component_embeddings"
}
