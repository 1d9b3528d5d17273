// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionInspirations 历史高分文案集合
	CollectionInspirations = "inspirations"

	// VectorDimension 向量维度
	VectorDimension = 1024
)

// InspirationsSchema 风格参考 Collection Schema
func InspirationsSchema() *entity.Schema {
	return &entity.Schema{
		CollectionName: CollectionInspirations,
		Description:    "High-scoring past copy for stylistic grounding",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": "1024",
				},
			},
			{
				Name:     "run_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "score",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "text_content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
		},
	}
}

// Inspiration 风格参考数据结构
type Inspiration struct {
	ID          string    `json:"id"`
	Vector      []float32 `json:"vector"`
	RunID       string    `json:"run_id"`
	Score       int64     `json:"score"`
	TextContent string    `json:"text_content"`
}
