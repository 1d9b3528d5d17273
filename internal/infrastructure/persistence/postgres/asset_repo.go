package postgres

import (
	"context"
	"fmt"
	"strings"

	"z-carousel-ai-api/internal/domain/entity"
)

// AssetRepository 品牌素材仓储实现
type AssetRepository struct {
	client *Client
}

// NewAssetRepository 创建品牌素材仓储
func NewAssetRepository(client *Client) *AssetRepository {
	return &AssetRepository{client: client}
}

// Search 按关键词检索素材库。
// 命中标题、描述或标签即返回，按创建时间倒序截断到 limit。
func (r *AssetRepository) Search(ctx context.Context, query string, limit int) ([]*entity.BrandAsset, error) {
	ctx, span := tracer.Start(ctx, "postgres.AssetRepository.Search")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	pattern := "%" + strings.ToLower(query) + "%"
	var assets []*entity.BrandAsset
	err := r.client.db.WithContext(ctx).
		Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR ? = ANY(tags)", pattern, pattern, strings.ToLower(query)).
		Order("created_at DESC").
		Limit(limit).
		Find(&assets).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search brand assets: %w", err)
	}
	return assets, nil
}
