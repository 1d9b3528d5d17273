// Package repository 定义领域仓储接口
package repository

import (
	"context"

	"z-carousel-ai-api/internal/domain/entity"
)

// KnowledgeRepository 知识库仓储（只读）。
// List 必须按语料插入顺序（created_at, id 升序）返回，检索引擎依赖该顺序做稳定打分排序。
type KnowledgeRepository interface {
	List(ctx context.Context, sourceType entity.KnowledgeSourceType) ([]*entity.KnowledgeDocument, error)
	Count(ctx context.Context) (int64, error)
}

// AssetRepository 品牌素材仓储（只读）
type AssetRepository interface {
	Search(ctx context.Context, query string, limit int) ([]*entity.BrandAsset, error)
}

// RunRepository 流水线运行记录仓储
type RunRepository interface {
	Create(ctx context.Context, run *entity.CarouselRun) error
	Update(ctx context.Context, run *entity.CarouselRun) error
	GetByID(ctx context.Context, id string) (*entity.CarouselRun, error)
	ListByJob(ctx context.Context, jobID string) ([]*entity.CarouselRun, error)
}

// InspirationRepository 风格参考向量库。
// 存放历史高分文案的向量，供策略师做非约束性的风格参考；不可用时整体降级。
type InspirationRepository interface {
	Insert(ctx context.Context, runID string, text string, vector []float32, score int) error
	Search(ctx context.Context, vector []float32, topK int) ([]string, error)
}
