package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"z-carousel-ai-api/internal/domain/entity"
)

// RunRepository 流水线运行记录仓储实现
type RunRepository struct {
	client *Client
}

// NewRunRepository 创建运行记录仓储
func NewRunRepository(client *Client) *RunRepository {
	return &RunRepository{client: client}
}

// Create 创建运行记录
func (r *RunRepository) Create(ctx context.Context, run *entity.CarouselRun) error {
	ctx, span := tracer.Start(ctx, "postgres.RunRepository.Create")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Create(run).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create carousel run: %w", err)
	}
	return nil
}

// Update 更新运行记录
func (r *RunRepository) Update(ctx context.Context, run *entity.CarouselRun) error {
	ctx, span := tracer.Start(ctx, "postgres.RunRepository.Update")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Save(run).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update carousel run: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取运行记录，未找到时返回 nil
func (r *RunRepository) GetByID(ctx context.Context, id string) (*entity.CarouselRun, error) {
	ctx, span := tracer.Start(ctx, "postgres.RunRepository.GetByID")
	defer span.End()

	var run entity.CarouselRun
	if err := r.client.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get carousel run: %w", err)
	}
	return &run, nil
}

// ListByJob 获取批量任务下的全部运行记录
func (r *RunRepository) ListByJob(ctx context.Context, jobID string) ([]*entity.CarouselRun, error) {
	ctx, span := tracer.Start(ctx, "postgres.RunRepository.ListByJob")
	defer span.End()

	var runs []*entity.CarouselRun
	if err := r.client.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Find(&runs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list carousel runs: %w", err)
	}
	return runs, nil
}
