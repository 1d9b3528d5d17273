// Package tooling 提供封闭工具集的类型化分发器
package tooling

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-carousel-ai-api/internal/application/retrieval"
	"z-carousel-ai-api/internal/domain/entity"
	"z-carousel-ai-api/internal/domain/repository"
	"z-carousel-ai-api/pkg/logger"
	"z-carousel-ai-api/pkg/metrics"
)

var tracer = otel.Tracer("tooling")

// ToolName 工具名称。工具集是封闭的：不接受运行期注册的任意工具。
type ToolName string

const (
	ToolKnowledgeQuery     ToolName = "knowledge_query"
	ToolAudiencePainPoints ToolName = "audience_pain_points"
	ToolProductCategories  ToolName = "product_categories"
	ToolHookExamples       ToolName = "hook_examples"
	ToolAssetSearch        ToolName = "asset_search"
	ToolImageGeneration    ToolName = "image_generation"
	ToolDeepResearch       ToolName = "deep_research"
)

// ToolCall 工具调用请求
type ToolCall struct {
	Name  ToolName `json:"name"`
	Query string   `json:"query"`
	Limit int      `json:"limit,omitempty"`
}

// ToolResult 工具调用结果。
// Dispatch 永不返回 error：失败以 OK=false + Error 文本表达，
// 单个工具失败不能中断整次流水线运行。
type ToolResult struct {
	Name     ToolName             `json:"name"`
	OK       bool                 `json:"ok"`
	Error    string               `json:"error,omitempty"`
	Snippets []string             `json:"snippets,omitempty"`
	Assets   []*entity.BrandAsset `json:"assets,omitempty"`
	ImageURL string               `json:"image_url,omitempty"`
	Summary  string               `json:"summary,omitempty"`
}

// ImageGenerator 图像生成依赖（port）
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Researcher 外部调研依赖（port）
type Researcher interface {
	Research(ctx context.Context, topic string, level entity.ResearchLevel) (string, error)
}

// Dispatcher 工具分发器
type Dispatcher struct {
	engine     *retrieval.Engine
	assets     repository.AssetRepository
	imageGen   ImageGenerator
	researcher Researcher
}

// NewDispatcher 创建工具分发器。
// imageGen 与 researcher 可为 nil，对应工具将返回失败结果。
func NewDispatcher(engine *retrieval.Engine, assets repository.AssetRepository, imageGen ImageGenerator, researcher Researcher) *Dispatcher {
	return &Dispatcher{
		engine:     engine,
		assets:     assets,
		imageGen:   imageGen,
		researcher: researcher,
	}
}

// Dispatch 执行单个工具调用
func (d *Dispatcher) Dispatch(ctx context.Context, call ToolCall) ToolResult {
	ctx, span := tracer.Start(ctx, "tooling.Dispatch",
		trace.WithAttributes(attribute.String("tool", string(call.Name))))
	defer span.End()

	start := time.Now()
	result := d.dispatch(ctx, call)
	duration := time.Since(start).Seconds()

	status := "success"
	if !result.OK {
		status = "error"
		span.SetAttributes(attribute.String("tool.error", result.Error))
		logger.Warn(ctx, "tool call failed",
			"tool", call.Name,
			"error", result.Error,
		)
	}
	metrics.ToolCallTotal.WithLabelValues(string(call.Name), status).Inc()
	metrics.ToolCallDuration.WithLabelValues(string(call.Name)).Observe(duration)

	return result
}

func (d *Dispatcher) dispatch(ctx context.Context, call ToolCall) ToolResult {
	switch call.Name {
	case ToolKnowledgeQuery:
		return d.searchKnowledge(ctx, call, "")
	case ToolAudiencePainPoints:
		return d.searchKnowledge(ctx, call, entity.SourcePainPointCatalog)
	case ToolProductCategories:
		return d.searchKnowledge(ctx, call, entity.SourceBrandGuidance)
	case ToolHookExamples:
		return d.searchKnowledge(ctx, call, entity.SourceCompetitiveIntel)
	case ToolAssetSearch:
		return d.searchAssets(ctx, call)
	case ToolImageGeneration:
		return d.generateImage(ctx, call)
	case ToolDeepResearch:
		return d.deepResearch(ctx, call)
	default:
		return failure(call.Name, fmt.Sprintf("unknown tool: %s", call.Name))
	}
}

func (d *Dispatcher) searchKnowledge(ctx context.Context, call ToolCall, sourceType entity.KnowledgeSourceType) ToolResult {
	if d.engine == nil {
		return failure(call.Name, "knowledge engine not configured")
	}
	snippets, err := d.engine.Snippets(ctx, retrieval.Query{
		Text:       call.Query,
		SourceType: sourceType,
		MaxResults: call.Limit,
	})
	if err != nil {
		return failure(call.Name, err.Error())
	}
	return ToolResult{Name: call.Name, OK: true, Snippets: snippets}
}

func (d *Dispatcher) searchAssets(ctx context.Context, call ToolCall) ToolResult {
	if d.assets == nil {
		return failure(call.Name, "asset repository not configured")
	}
	assets, err := d.assets.Search(ctx, call.Query, call.Limit)
	if err != nil {
		return failure(call.Name, err.Error())
	}
	return ToolResult{Name: call.Name, OK: true, Assets: assets}
}

func (d *Dispatcher) generateImage(ctx context.Context, call ToolCall) ToolResult {
	if d.imageGen == nil {
		return failure(call.Name, "image generator not configured")
	}
	url, err := d.imageGen.Generate(ctx, call.Query)
	if err != nil {
		return failure(call.Name, err.Error())
	}
	return ToolResult{Name: call.Name, OK: true, ImageURL: url}
}

func (d *Dispatcher) deepResearch(ctx context.Context, call ToolCall) ToolResult {
	if d.researcher == nil {
		return failure(call.Name, "researcher not configured")
	}
	summary, err := d.researcher.Research(ctx, call.Query, entity.ResearchDeep)
	if err != nil {
		return failure(call.Name, err.Error())
	}
	return ToolResult{Name: call.Name, OK: true, Summary: summary}
}

func failure(name ToolName, msg string) ToolResult {
	return ToolResult{Name: name, OK: false, Error: msg}
}
