package entity

import (
	"time"
)

// RunStatus 流水线运行状态
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// CarouselResult 单次运行的终态产物
type CarouselResult struct {
	Copy   *Copy            `json:"copy"`
	Images []GeneratedImage `json:"images"`
	Review *QualityReview   `json:"review"`
}

// CarouselRun 流水线运行记录。
// 每份 Brief 产生一次独立运行；批量请求产生多条记录。
type CarouselRun struct {
	ID          string          `json:"id" gorm:"type:uuid;primaryKey"`
	JobID       string          `json:"job_id,omitempty" gorm:"type:uuid;index"`
	Brief       *Brief          `json:"brief" gorm:"type:jsonb;serializer:json"`
	Strategy    *Strategy       `json:"strategy,omitempty" gorm:"type:jsonb;serializer:json"`
	Result      *CarouselResult `json:"result,omitempty" gorm:"type:jsonb;serializer:json"`
	Status      RunStatus       `json:"status" gorm:"type:varchar(20);index;default:'queued'"`
	ErrorText   string          `json:"error,omitempty" gorm:"type:text"`
	Attempts    int             `json:"attempts" gorm:"default:0"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (CarouselRun) TableName() string {
	return "carousel_runs"
}

// MarkRunning 标记运行开始
func (r *CarouselRun) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkCompleted 写入终态产物
func (r *CarouselRun) MarkCompleted(result *CarouselResult) {
	now := time.Now()
	r.Status = RunStatusCompleted
	r.Result = result
	r.CompletedAt = &now
}

// MarkFailed 写入失败原因
func (r *CarouselRun) MarkFailed(errText string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.ErrorText = errText
	r.CompletedAt = &now
}
