// Package messaging 提供消息队列实现
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-carousel-ai-api/internal/domain/entity"
)

var tracer = otel.Tracer("messaging")

// MsgTypeCarouselRun 单次运行任务消息类型
const MsgTypeCarouselRun = "carousel_run"

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishCarouselRun 发布单次生成运行任务。
// 批量请求按 Brief 拆成多条消息，各自独立消费与重试。
func (p *Producer) PublishCarouselRun(ctx context.Context, job *CarouselRunMessage) (string, error) {
	msg, err := NewMessage(job.RunID, MsgTypeCarouselRun, job.JobID, job.RunID, job)
	if err != nil {
		return "", err
	}

	if job.RequestID != "" {
		msg.SetMetadata("request_id", job.RequestID)
	}

	return p.Publish(ctx, StreamCarouselJobs, msg)
}

// CarouselRunMessage 单次生成运行任务消息
type CarouselRunMessage struct {
	JobID     string        `json:"job_id"`
	RunID     string        `json:"run_id"`
	RequestID string        `json:"request_id,omitempty"`
	Brief     *entity.Brief `json:"brief"`
}
