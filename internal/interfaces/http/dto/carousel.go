package dto

import (
	"time"

	"z-carousel-ai-api/internal/domain/entity"
)

// GenerateRequest 生成请求
type GenerateRequest struct {
	Topic          string   `json:"topic" binding:"required"`
	TargetAudience string   `json:"target_audience" binding:"required"`
	PainPoint      string   `json:"pain_point,omitempty"`
	DesiredOutcome string   `json:"desired_outcome,omitempty"`
	CTAAction      string   `json:"cta_action,omitempty"`
	ProofPoints    []string `json:"proof_points,omitempty"`
	Format         string   `json:"format,omitempty"`
	ProfileType    string   `json:"profile_type,omitempty"`
	ResearchLevel  string   `json:"research_level,omitempty"`

	Stream            bool `json:"stream,omitempty"`
	NumberOfCarousels int  `json:"number_of_carousels,omitempty"`
}

// ToBrief 转换为领域简报并填充缺省枚举
func (r *GenerateRequest) ToBrief() *entity.Brief {
	brief := &entity.Brief{
		Topic:          r.Topic,
		TargetAudience: r.TargetAudience,
		PainPoint:      r.PainPoint,
		DesiredOutcome: r.DesiredOutcome,
		CTAAction:      r.CTAAction,
		ProofPoints:    r.ProofPoints,
		Format:         entity.OutputFormat(r.Format),
		ProfileType:    entity.ProfileType(r.ProfileType),
		ResearchLevel:  entity.ResearchLevel(r.ResearchLevel),
	}
	brief.Normalize()
	return brief
}

// BatchCount 返回批量数，缺省为 1
func (r *GenerateRequest) BatchCount() int {
	if r.NumberOfCarousels <= 0 {
		return 1
	}
	return r.NumberOfCarousels
}

// GenerateResponse 非流式生成响应
type GenerateResponse struct {
	Carousels []*entity.CarouselResult `json:"carousels"`
}

// JobCreatedResponse 批量任务入队响应
type JobCreatedResponse struct {
	JobID  string   `json:"job_id"`
	RunIDs []string `json:"run_ids"`
}

// RunResponse 单次运行状态响应
type RunResponse struct {
	ID          string                 `json:"id"`
	JobID       string                 `json:"job_id,omitempty"`
	Status      string                 `json:"status"`
	Brief       *entity.Brief          `json:"brief,omitempty"`
	Result      *entity.CarouselResult `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Attempts    int                    `json:"attempts"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// FromRun 把运行记录映射成响应
func FromRun(run *entity.CarouselRun) *RunResponse {
	return &RunResponse{
		ID:          run.ID,
		JobID:       run.JobID,
		Status:      string(run.Status),
		Brief:       run.Brief,
		Result:      run.Result,
		Error:       run.ErrorText,
		Attempts:    run.Attempts,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		CreatedAt:   run.CreatedAt,
	}
}

// JobResponse 批量任务状态响应
type JobResponse struct {
	JobID string         `json:"job_id"`
	Runs  []*RunResponse `json:"runs"`
}

// FromJobRuns 把任务下的全部运行映射成响应
func FromJobRuns(jobID string, runs []*entity.CarouselRun) *JobResponse {
	out := &JobResponse{
		JobID: jobID,
		Runs:  make([]*RunResponse, 0, len(runs)),
	}
	for _, run := range runs {
		out.Runs = append(out.Runs, FromRun(run))
	}
	return out
}
