package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"z-carousel-ai-api/internal/config"
	"z-carousel-ai-api/internal/domain/entity"
	"z-carousel-ai-api/internal/domain/repository"
	"z-carousel-ai-api/internal/infrastructure/messaging"
	apperrors "z-carousel-ai-api/pkg/errors"
	"z-carousel-ai-api/pkg/logger"
)

// DefaultMaxBatchSize 单次请求允许的最大批量
const DefaultMaxBatchSize = 5

// Service 生成服务门面：同步/流式批量生成、异步任务入队与查询、
// worker 侧消息处理。批量内各项按序独立运行。
type Service struct {
	orchestrator *Orchestrator
	runs         repository.RunRepository
	producer     *messaging.Producer

	maxBatchSize    int
	eventBufferSize int
}

// NewService 创建生成服务。producer 可为 nil（worker 进程不入队）。
func NewService(
	orchestrator *Orchestrator,
	runs repository.RunRepository,
	producer *messaging.Producer,
	cfg *config.PipelineConfig,
) *Service {
	maxBatch := DefaultMaxBatchSize
	buffer := DefaultEventBuffer
	if cfg != nil {
		if cfg.MaxBatchSize > 0 {
			maxBatch = cfg.MaxBatchSize
		}
		if cfg.EventBufferSize > 0 {
			buffer = cfg.EventBufferSize
		}
	}
	return &Service{
		orchestrator:    orchestrator,
		runs:            runs,
		producer:        producer,
		maxBatchSize:    maxBatch,
		eventBufferSize: buffer,
	}
}

// MaxBatchSize 返回批量上限，供请求校验
func (s *Service) MaxBatchSize() int {
	return s.maxBatchSize
}

// NewEmitter 按配置缓冲创建进度事件发射器
func (s *Service) NewEmitter() *Emitter {
	return NewEmitter(s.eventBufferSize)
}

// ValidateBatch 校验批量数取值
func (s *Service) ValidateBatch(count int) error {
	if count < 1 || count > s.maxBatchSize {
		return apperrors.New(apperrors.CodeInvalidParam,
			fmt.Sprintf("number_of_carousels must be between 1 and %d", s.maxBatchSize))
	}
	return nil
}

// Generate 同步执行批量生成。
// 批量项按序运行、彼此独立；任一项致命失败中止整批并发终态 error 事件。
// emitter 可为 nil（非流式调用只要返回值）。
// 无论成败，返回前都会发出终态事件并关闭 emitter。
func (s *Service) Generate(ctx context.Context, briefs []*entity.Brief, emitter *Emitter) ([]*entity.CarouselResult, error) {
	defer emitter.Close()

	results := make([]*entity.CarouselResult, 0, len(briefs))
	for i, brief := range briefs {
		run := s.newRun(brief, "")
		if s.runs != nil {
			if err := s.runs.Create(ctx, run); err != nil {
				logger.Warn(ctx, "failed to create run record", "run_id", run.ID, "error", err)
			}
		}

		logger.Info(ctx, "starting pipeline run",
			"run_id", run.ID,
			"batch_index", i,
			"batch_total", len(briefs),
		)

		result, err := s.orchestrator.Run(ctx, run, emitter)
		if err != nil {
			emitter.EmitTerminal(ctx, Event{Type: EventError, Data: ErrorData{Error: err.Error()}})
			return nil, err
		}
		results = append(results, result)
	}

	emitter.EmitTerminal(ctx, Event{Type: EventComplete, Data: CompleteData{Carousels: results}})
	return results, nil
}

// EnqueueJob 把批量简报拆成独立运行入队，返回任务 ID 与各运行 ID
func (s *Service) EnqueueJob(ctx context.Context, briefs []*entity.Brief, requestID string) (string, []string, error) {
	if s.producer == nil {
		return "", nil, apperrors.New(apperrors.CodeServiceUnavailable, "job queue not configured")
	}

	jobID := uuid.New().String()
	runIDs := make([]string, 0, len(briefs))

	for _, brief := range briefs {
		run := s.newRun(brief, jobID)
		if s.runs != nil {
			if err := s.runs.Create(ctx, run); err != nil {
				return "", nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to create run record")
			}
		}

		if _, err := s.producer.PublishCarouselRun(ctx, &messaging.CarouselRunMessage{
			JobID:     jobID,
			RunID:     run.ID,
			RequestID: requestID,
			Brief:     brief,
		}); err != nil {
			return "", nil, apperrors.Wrap(err, apperrors.CodeInternalError, "failed to enqueue run")
		}
		runIDs = append(runIDs, run.ID)
	}

	logger.Info(ctx, "batch job enqueued", "job_id", jobID, "runs", len(runIDs))
	return jobID, runIDs, nil
}

// GetRun 查询单次运行
func (s *Service) GetRun(ctx context.Context, runID string) (*entity.CarouselRun, error) {
	if s.runs == nil {
		return nil, apperrors.New(apperrors.CodeServiceUnavailable, "run store not configured")
	}
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load run")
	}
	if run == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "run not found")
	}
	return run, nil
}

// GetJob 查询任务下的全部运行
func (s *Service) GetJob(ctx context.Context, jobID string) ([]*entity.CarouselRun, error) {
	if s.runs == nil {
		return nil, apperrors.New(apperrors.CodeServiceUnavailable, "run store not configured")
	}
	runs, err := s.runs.ListByJob(ctx, jobID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load job runs")
	}
	if len(runs) == 0 {
		return nil, apperrors.New(apperrors.CodeNotFound, "job not found")
	}
	return runs, nil
}

// HandleCarouselRun worker 侧消息处理器。
// 返回错误触发消费者的退避重试/DLQ 流程。
func (s *Service) HandleCarouselRun(ctx context.Context, msg *messaging.Message) error {
	var job messaging.CarouselRunMessage
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		// 反序列化失败重试无意义，吞掉让消息被确认
		logger.Error(ctx, "malformed carousel run message, discarding", err, "message_id", msg.ID)
		return nil
	}
	if job.Brief == nil {
		logger.Error(ctx, "carousel run message without brief, discarding", nil, "message_id", msg.ID)
		return nil
	}

	run := s.loadOrRebuildRun(ctx, &job)

	// worker 无订阅者，不挂事件发射器
	if _, err := s.orchestrator.Run(ctx, run, nil); err != nil {
		return err
	}
	return nil
}

// loadOrRebuildRun 优先取库里的运行记录；取不到就按消息重建，
// 保证消息自足、不依赖入队方先写库成功
func (s *Service) loadOrRebuildRun(ctx context.Context, job *messaging.CarouselRunMessage) *entity.CarouselRun {
	if s.runs != nil {
		run, err := s.runs.GetByID(ctx, job.RunID)
		if err != nil {
			logger.Warn(ctx, "failed to load run record, rebuilding from message",
				"run_id", job.RunID,
				"error", err,
			)
		} else if run != nil {
			return run
		}
	}
	run := &entity.CarouselRun{
		ID:     job.RunID,
		JobID:  job.JobID,
		Brief:  job.Brief,
		Status: entity.RunStatusQueued,
	}
	if s.runs != nil {
		if err := s.runs.Create(ctx, run); err != nil {
			logger.Warn(ctx, "failed to create rebuilt run record", "run_id", run.ID, "error", err)
		}
	}
	return run
}

func (s *Service) newRun(brief *entity.Brief, jobID string) *entity.CarouselRun {
	return &entity.CarouselRun{
		ID:     uuid.New().String(),
		JobID:  jobID,
		Brief:  brief,
		Status: entity.RunStatusQueued,
	}
}
