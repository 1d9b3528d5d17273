// Package pipeline 实现多智能体生成流水线的编排与进度流
package pipeline

import (
	"context"

	"z-carousel-ai-api/internal/domain/entity"
	"z-carousel-ai-api/pkg/logger"
	"z-carousel-ai-api/pkg/metrics"
)

// EventType 进度事件类型
type EventType string

const (
	EventStep             EventType = "step"
	EventAgentStatus      EventType = "agent_status"
	EventStrategistResult EventType = "strategist_result"
	EventCopywriterResult EventType = "copywriter_result"
	EventDesignerResult   EventType = "designer_result"
	EventImageProgress    EventType = "image_progress"
	EventComplete         EventType = "complete"
	EventError            EventType = "error"
)

// StepStatus 阶段状态
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in-progress"
	StepDone       StepStatus = "done"
	StepError      StepStatus = "error"
)

// 对外步骤名，与前端展示约定一致
const (
	StepStrategist = "strategist"
	StepAnalyst    = "analyst"
	StepImages     = "images"
)

// Event 流水线进度事件
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
}

// StepData 阶段转换事件负载
type StepData struct {
	Step    string     `json:"step"`
	Status  StepStatus `json:"status"`
	Message string     `json:"message,omitempty"`
}

// AgentStatusData 阶段内细粒度状态负载
type AgentStatusData struct {
	Agent   string `json:"agent"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ResultData 阶段产出负载
type ResultData struct {
	FullOutput interface{} `json:"fullOutput"`
}

// ImageProgressData 单张素材完成进度负载
type ImageProgressData struct {
	SlideIndex int `json:"slideIndex"`
	Completed  int `json:"completed"`
	Total      int `json:"total"`
}

// CompleteData 终态成功负载，批量请求逐项聚合
type CompleteData struct {
	Carousels []*entity.CarouselResult `json:"carousels"`
}

// ErrorData 终态失败负载
type ErrorData struct {
	Error string `json:"error"`
}

// DefaultEventBuffer 进度事件通道默认缓冲
const DefaultEventBuffer = 64

// Emitter 进度事件发射器。
// 慢消费者不能拖慢流水线：缓冲满时丢弃进度事件并告警，
// 终态事件（complete/error）改用阻塞发送保证必达。
type Emitter struct {
	ch chan Event
}

// NewEmitter 创建发射器
func NewEmitter(buffer int) *Emitter {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &Emitter{ch: make(chan Event, buffer)}
}

// Events 返回只读事件通道
func (e *Emitter) Events() <-chan Event {
	return e.ch
}

// Emit 非阻塞发送进度事件，缓冲满时丢弃
func (e *Emitter) Emit(ctx context.Context, ev Event) {
	if e == nil {
		return
	}
	select {
	case e.ch <- ev:
	default:
		metrics.StreamEventsDropped.WithLabelValues(string(ev.Type)).Inc()
		logger.Warn(ctx, "progress event dropped, buffer full", "event_type", ev.Type)
	}
}

// EmitTerminal 阻塞发送终态事件，保证消费者一定收到
func (e *Emitter) EmitTerminal(ctx context.Context, ev Event) {
	if e == nil {
		return
	}
	select {
	case e.ch <- ev:
	case <-ctx.Done():
		logger.Warn(ctx, "terminal event not delivered, consumer gone", "event_type", ev.Type)
	}
}

// Close 关闭事件通道，只能由生产方在终态事件之后调用
func (e *Emitter) Close() {
	if e == nil {
		return
	}
	close(e.ch)
}
