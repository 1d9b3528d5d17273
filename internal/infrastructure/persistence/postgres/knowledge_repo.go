// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"z-carousel-ai-api/internal/domain/entity"
)

// KnowledgeRepository 知识库仓储实现
type KnowledgeRepository struct {
	client *Client
}

// NewKnowledgeRepository 创建知识库仓储
func NewKnowledgeRepository(client *Client) *KnowledgeRepository {
	return &KnowledgeRepository{client: client}
}

// List 按来源类型列出语料。
// 固定按 created_at, id 升序返回，保证检索打分在同分时有稳定顺序。
func (r *KnowledgeRepository) List(ctx context.Context, sourceType entity.KnowledgeSourceType) ([]*entity.KnowledgeDocument, error) {
	ctx, span := tracer.Start(ctx, "postgres.KnowledgeRepository.List")
	defer span.End()

	db := r.client.db.WithContext(ctx)
	query := db.Model(&entity.KnowledgeDocument{})
	if sourceType != "" {
		query = query.Where("source_type = ?", sourceType)
	}

	var docs []*entity.KnowledgeDocument
	if err := query.Order("created_at ASC, id ASC").Find(&docs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list knowledge documents: %w", err)
	}
	return docs, nil
}

// Count 统计语料总量
func (r *KnowledgeRepository) Count(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.KnowledgeRepository.Count")
	defer span.End()

	var total int64
	if err := r.client.db.WithContext(ctx).Model(&entity.KnowledgeDocument{}).Count(&total).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count knowledge documents: %w", err)
	}
	return total, nil
}
