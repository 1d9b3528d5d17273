package milvus

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// InspirationRepository 风格参考向量仓储。
// 存放历史高分文案的向量，策略师检索相似主题的过往产出做风格参考。
type InspirationRepository struct {
	client *Client
}

// NewInspirationRepository 创建风格参考仓储
func NewInspirationRepository(client *Client) *InspirationRepository {
	return &InspirationRepository{client: client}
}

// EnsureCollection 确保集合、索引存在并加载到内存
func (r *InspirationRepository) EnsureCollection(ctx context.Context) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.InspirationRepository.EnsureCollection")
	defer span.End()

	collName := r.client.CollectionName(CollectionInspirations)

	has, err := r.client.milvus.HasCollection(ctx, collName)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if !has {
		schema := InspirationsSchema()
		schema.CollectionName = collName
		if err := r.client.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to create collection: %w", err)
		}

		idx, err := entity.NewIndexHNSW(
			entity.COSINE,
			r.client.config.HNSWM,
			r.client.config.HNSWEfConstruction,
		)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to create index: %w", err)
		}
		if err := r.client.milvus.CreateIndex(ctx, collName, "vector", idx, false); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if err := r.client.milvus.LoadCollection(ctx, collName, false); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to load collection: %w", err)
	}
	return nil
}

// Insert 写入一条高分文案向量
func (r *InspirationRepository) Insert(ctx context.Context, runID string, text string, vector []float32, score int) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.InspirationRepository.Insert",
		trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.Int("score", score),
		))
	defer span.End()

	if len(vector) == 0 {
		return fmt.Errorf("inspiration vector is empty")
	}

	collName := r.client.CollectionName(CollectionInspirations)

	idCol := entity.NewColumnVarChar("id", []string{uuid.New().String()})
	vectorCol := entity.NewColumnFloatVector("vector", VectorDimension, [][]float32{vector})
	runCol := entity.NewColumnVarChar("run_id", []string{runID})
	scoreCol := entity.NewColumnInt64("score", []int64{int64(score)})
	textCol := entity.NewColumnVarChar("text_content", []string{text})

	_, err := r.client.milvus.Insert(ctx, collName, "", idCol, vectorCol, runCol, scoreCol, textCol)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert inspiration: %w", err)
	}
	return nil
}

// Search 检索与查询向量最相近的历史文案文本
func (r *InspirationRepository) Search(ctx context.Context, vector []float32, topK int) ([]string, error) {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.InspirationRepository.Search",
		trace.WithAttributes(attribute.Int("top_k", topK)))
	defer span.End()

	if topK <= 0 {
		topK = 3
	}

	collName := r.client.CollectionName(CollectionInspirations)

	sp, err := entity.NewIndexHNSWSearchParam(128)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := r.client.milvus.Search(ctx,
		collName,
		nil,
		"",
		[]string{"text_content"},
		[]entity.Vector{entity.FloatVector(vector)},
		"vector",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search inspirations: %w", err)
	}

	var texts []string
	for _, result := range results {
		if textCol, ok := result.Fields.GetColumn("text_content").(*entity.ColumnVarChar); ok {
			texts = append(texts, textCol.Data()...)
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(texts)))
	return texts, nil
}
