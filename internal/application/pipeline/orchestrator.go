package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"z-carousel-ai-api/internal/application/agent"
	"z-carousel-ai-api/internal/config"
	"z-carousel-ai-api/internal/domain/entity"
	"z-carousel-ai-api/internal/domain/repository"
	apperrors "z-carousel-ai-api/pkg/errors"
	"z-carousel-ai-api/pkg/logger"
	"z-carousel-ai-api/pkg/metrics"
)

var tracer = otel.Tracer("pipeline")

// 阶段指标标签
const (
	stagePlanning  = "planning"
	stageWriting   = "writing"
	stageDesigning = "designing"
	stageReviewing = "reviewing"
)

// InspirationMinScore 写回风格库的最低评分
const InspirationMinScore = 85

// inspirationWriteTimeout 风格库异步写回的超时预算
const inspirationWriteTimeout = 15 * time.Second

// Orchestrator 流水线编排器。
// 状态机 PLANNING→WRITING→DESIGNING→REVIEWING→{DONE|REGENERATING→WRITING}，
// 重写轮数有上限，超限后按当前产出交付而非继续循环。
type Orchestrator struct {
	strategist   *agent.Strategist
	copywriter   *agent.Copywriter
	designer     *agent.Designer
	reviewer     *agent.Reviewer
	runs         repository.RunRepository
	inspirations repository.InspirationRepository

	maxRegenerations int
}

// NewOrchestrator 创建编排器。
// runs 与 inspirations 可为 nil：前者跳过持久化，后者跳过高分写回。
func NewOrchestrator(
	strategist *agent.Strategist,
	copywriter *agent.Copywriter,
	designer *agent.Designer,
	reviewer *agent.Reviewer,
	runs repository.RunRepository,
	inspirations repository.InspirationRepository,
	cfg *config.PipelineConfig,
) *Orchestrator {
	maxRegens := 1
	if cfg != nil && cfg.MaxRegenerations >= 0 {
		maxRegens = cfg.MaxRegenerations
	}
	return &Orchestrator{
		strategist:       strategist,
		copywriter:       copywriter,
		designer:         designer,
		reviewer:         reviewer,
		runs:             runs,
		inspirations:     inspirations,
		maxRegenerations: maxRegens,
	}
}

// Run 执行一次完整的流水线运行。
// emitter 可为 nil（worker 场景无订阅者）。终态事件由调用方负责发送，
// Run 只发进度事件并返回结果或致命错误。
func (o *Orchestrator) Run(ctx context.Context, run *entity.CarouselRun, emitter *Emitter) (*entity.CarouselResult, error) {
	ctx, span := tracer.Start(ctx, "pipeline.Run",
		trace.WithAttributes(
			attribute.String("run.id", run.ID),
			attribute.String("brief.format", string(run.Brief.Format)),
		))
	defer span.End()

	start := time.Now()
	format := string(run.Brief.Format)

	run.MarkRunning()
	run.Attempts++
	o.persist(ctx, run)

	result, err := o.execute(ctx, run, emitter)
	if err != nil {
		run.MarkFailed(err.Error())
		o.persist(ctx, run)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.PipelineRunsTotal.WithLabelValues(format, "failed").Inc()
		return nil, err
	}

	run.MarkCompleted(result)
	o.persist(ctx, run)
	metrics.PipelineRunsTotal.WithLabelValues(format, "completed").Inc()
	metrics.PipelineRunDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("review.score", result.Review.OverallScore))

	o.maybeStoreInspiration(ctx, run.ID, result)
	return result, nil
}

func (o *Orchestrator) execute(ctx context.Context, run *entity.CarouselRun, emitter *Emitter) (*entity.CarouselResult, error) {
	brief := run.Brief

	// PLANNING：策略失败即整次运行失败
	emitter.Emit(ctx, Event{Type: EventStep, Data: StepData{Step: StepStrategist, Status: StepInProgress}})
	stageStart := time.Now()

	strategy, err := o.strategist.GenerateStrategy(ctx, brief)
	if err != nil {
		emitter.Emit(ctx, Event{Type: EventStep, Data: StepData{Step: StepStrategist, Status: StepError, Message: err.Error()}})
		return nil, err
	}
	metrics.PipelineStageDuration.WithLabelValues(stagePlanning).Observe(time.Since(stageStart).Seconds())

	run.Strategy = strategy
	o.persist(ctx, run)
	emitter.Emit(ctx, Event{Type: EventStrategistResult, Data: ResultData{FullOutput: strategy}})
	emitter.Emit(ctx, Event{Type: EventStep, Data: StepData{Step: StepStrategist, Status: StepDone}})

	var (
		copyOut *entity.Copy
		images  []entity.GeneratedImage
		review  *entity.QualityReview
		issues  []string
	)

	for attempt := 0; ; attempt++ {
		// WRITING
		emitter.Emit(ctx, Event{Type: EventStep, Data: StepData{Step: StepAnalyst, Status: StepInProgress}})
		stageStart = time.Now()

		nextCopy, err := o.copywriter.GenerateCopy(ctx, brief, strategy, issues)
		if err != nil {
			if attempt == 0 {
				emitter.Emit(ctx, Event{Type: EventStep, Data: StepData{Step: StepAnalyst, Status: StepError, Message: err.Error()}})
				return nil, err
			}
			// 重写失败保留上一版产出，不让重写环节把已有结果拖垮
			logger.Warn(ctx, "rewrite failed during regeneration, keeping previous copy",
				"run_id", run.ID,
				"attempt", attempt,
				"error", err,
			)
			break
		}
		copyOut = nextCopy
		metrics.PipelineStageDuration.WithLabelValues(stageWriting).Observe(time.Since(stageStart).Seconds())
		emitter.Emit(ctx, Event{Type: EventCopywriterResult, Data: ResultData{FullOutput: copyOut}})
		emitter.Emit(ctx, Event{Type: EventStep, Data: StepData{Step: StepAnalyst, Status: StepDone}})

		// DESIGNING：从不致命，单张降级
		emitter.Emit(ctx, Event{Type: EventStep, Data: StepData{Step: StepImages, Status: StepInProgress}})
		stageStart = time.Now()

		images, err = o.designer.GenerateImages(ctx, brief, copyOut, func(slideIndex, completed, total int) {
			emitter.Emit(ctx, Event{Type: EventImageProgress, Data: ImageProgressData{
				SlideIndex: slideIndex,
				Completed:  completed,
				Total:      total,
			}})
		})
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeGenerationFailed, "designer stage aborted")
		}
		metrics.PipelineStageDuration.WithLabelValues(stageDesigning).Observe(time.Since(stageStart).Seconds())
		emitter.Emit(ctx, Event{Type: EventDesignerResult, Data: ResultData{FullOutput: imageSummary(images)}})
		emitter.Emit(ctx, Event{Type: EventStep, Data: StepData{Step: StepImages, Status: StepDone}})

		// REVIEWING：评审失败返回兜底放行评审，永不中断
		emitter.Emit(ctx, Event{Type: EventAgentStatus, Data: AgentStatusData{
			Agent:   "reviewer",
			Status:  "in-progress",
			Message: "scoring generated content",
		}})
		stageStart = time.Now()

		review = o.reviewer.Review(ctx, brief, copyOut, images)
		metrics.PipelineStageDuration.WithLabelValues(stageReviewing).Observe(time.Since(stageStart).Seconds())
		metrics.QualityScore.Observe(float64(review.OverallScore))

		if review.NeedsRegeneration && attempt < o.maxRegenerations {
			metrics.PipelineRegenerationsTotal.Inc()
			issues = review.Issues
			logger.Info(ctx, "quality gate failed, regenerating copy",
				"run_id", run.ID,
				"score", review.OverallScore,
				"attempt", attempt+1,
			)
			emitter.Emit(ctx, Event{Type: EventAgentStatus, Data: AgentStatusData{
				Agent:   "reviewer",
				Status:  "regenerating",
				Message: fmt.Sprintf("score %d below threshold, rewriting", review.OverallScore),
			}})
			continue
		}
		break
	}

	return &entity.CarouselResult{
		Copy:   copyOut,
		Images: images,
		Review: review,
	}, nil
}

// persist 持久化运行记录，失败只告警不阻断流水线
func (o *Orchestrator) persist(ctx context.Context, run *entity.CarouselRun) {
	if o.runs == nil {
		return
	}
	if err := o.runs.Update(ctx, run); err != nil {
		logger.Warn(ctx, "failed to persist run state",
			"run_id", run.ID,
			"status", run.Status,
			"error", err,
		)
	}
}

// maybeStoreInspiration 把高分文案异步写回风格库，失败只告警。
// 与请求生命周期解耦，用独立超时避免挂死。
func (o *Orchestrator) maybeStoreInspiration(ctx context.Context, runID string, result *entity.CarouselResult) {
	if o.inspirations == nil || result.Review == nil || result.Copy == nil {
		return
	}
	if result.Review.OverallScore < InspirationMinScore {
		return
	}

	text := copyText(result.Copy)
	score := result.Review.OverallScore

	go func() {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), inspirationWriteTimeout)
		defer cancel()

		vector, err := o.strategist.EmbedCopy(wctx, text)
		if err != nil {
			logger.Warn(wctx, "failed to embed high-scoring copy", "run_id", runID, "error", err)
			return
		}
		if err := o.inspirations.Insert(wctx, runID, text, vector, score); err != nil {
			logger.Warn(wctx, "failed to store inspiration", "run_id", runID, "error", err)
			return
		}
		logger.Info(wctx, "high-scoring copy stored as inspiration", "run_id", runID, "score", score)
	}()
}

// copyText 把文案拍平成一段文本，供向量化与风格参考展示
func copyText(c *entity.Copy) string {
	var b strings.Builder
	b.WriteString(c.Caption)
	for _, s := range c.Slides {
		b.WriteString("\n")
		b.WriteString(s.Headline)
		if s.Body != "" {
			b.WriteString(" ")
			b.WriteString(s.Body)
		}
	}
	return strings.TrimSpace(b.String())
}

// imageSummary 汇总各张素材的来源，供 designer_result 事件展示
func imageSummary(images []entity.GeneratedImage) map[string]interface{} {
	bySource := make(map[string]int, 3)
	for _, img := range images {
		bySource[string(img.AssetSource)]++
	}
	return map[string]interface{}{
		"total":     len(images),
		"by_source": bySource,
		"images":    images,
	}
}
