// Package handler 提供 HTTP 请求处理器
package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"z-carousel-ai-api/internal/application/pipeline"
	"z-carousel-ai-api/internal/domain/entity"
	"z-carousel-ai-api/internal/interfaces/http/dto"
	apperrors "z-carousel-ai-api/pkg/errors"
	"z-carousel-ai-api/pkg/logger"
)

// CarouselHandler 轮播生成处理器
type CarouselHandler struct {
	svc *pipeline.Service
}

// NewCarouselHandler 创建轮播生成处理器
func NewCarouselHandler(svc *pipeline.Service) *CarouselHandler {
	return &CarouselHandler{svc: svc}
}

// Generate 生成轮播内容
// @Summary 生成轮播内容
// @Description 同步或 SSE 流式执行多智能体生成流水线
// @Tags Carousels
// @Accept json
// @Produce json
// @Produce text/event-stream
// @Param request body dto.GenerateRequest true "生成请求"
// @Success 200 {object} dto.Response[dto.GenerateResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/carousels/generate [post]
func (h *CarouselHandler) Generate(c *gin.Context) {
	req, briefs, ok := h.bindRequest(c)
	if !ok {
		return
	}

	if !req.Stream {
		results, err := h.svc.Generate(c.Request.Context(), briefs, nil)
		if err != nil {
			respondError(c, err)
			return
		}
		dto.Success(c, dto.GenerateResponse{Carousels: results})
		return
	}

	h.streamGenerate(c, briefs)
}

// streamGenerate 以 SSE 推送进度事件直至终态
func (h *CarouselHandler) streamGenerate(c *gin.Context, briefs []*entity.Brief) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	emitter := h.svc.NewEmitter()
	ctx := c.Request.Context()

	// 终态事件由 Generate 发出，goroutine 结束时关闭通道
	go func() {
		if _, err := h.svc.Generate(ctx, briefs, emitter); err != nil {
			logger.Warn(ctx, "streaming generation failed", "error", err)
		}
	}()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-emitter.Events():
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), ev.Data)
			return true
		case <-ctx.Done():
			// 客户端断开，流水线由 context 取消收尾
			return false
		}
	})
}

// CreateJob 入队批量生成任务
// @Summary 入队批量生成任务
// @Description 把批量简报拆成独立运行写入任务队列，由 worker 异步执行
// @Tags Carousels
// @Accept json
// @Produce json
// @Param request body dto.GenerateRequest true "生成请求"
// @Success 202 {object} dto.Response[dto.JobCreatedResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/carousels/jobs [post]
func (h *CarouselHandler) CreateJob(c *gin.Context) {
	_, briefs, ok := h.bindRequest(c)
	if !ok {
		return
	}

	jobID, runIDs, err := h.svc.EnqueueJob(c.Request.Context(), briefs, c.GetString("request_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Accepted(c, dto.JobCreatedResponse{JobID: jobID, RunIDs: runIDs})
}

// GetJob 查询批量任务状态
// @Summary 查询批量任务状态
// @Tags Carousels
// @Produce json
// @Param id path string true "任务 ID"
// @Success 200 {object} dto.Response[dto.JobResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/carousels/jobs/{id} [get]
func (h *CarouselHandler) GetJob(c *gin.Context) {
	jobID := c.Param("id")
	runs, err := h.svc.GetJob(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.FromJobRuns(jobID, runs))
}

// GetRun 查询单次运行状态
// @Summary 查询单次运行状态
// @Tags Carousels
// @Produce json
// @Param id path string true "运行 ID"
// @Success 200 {object} dto.Response[dto.RunResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/carousels/runs/{id} [get]
func (h *CarouselHandler) GetRun(c *gin.Context) {
	run, err := h.svc.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.FromRun(run))
}

// bindRequest 解析并校验生成请求，失败时已写入响应
func (h *CarouselHandler) bindRequest(c *gin.Context) (*dto.GenerateRequest, []*entity.Brief, bool) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return nil, nil, false
	}

	brief := req.ToBrief()
	if err := brief.Validate(); err != nil {
		dto.BadRequest(c, err.Error())
		return nil, nil, false
	}

	count := req.BatchCount()
	if err := h.svc.ValidateBatch(count); err != nil {
		respondError(c, err)
		return nil, nil, false
	}

	// 批量即同一份简报的 N 次独立运行
	briefs := make([]*entity.Brief, count)
	for i := range briefs {
		briefs[i] = brief
	}
	return &req, briefs, true
}

// respondError 把应用错误映射为 HTTP 响应
func respondError(c *gin.Context, err error) {
	if appErr := apperrors.AsAppError(err); appErr != nil {
		dto.Error(c, appErr.HTTPStatus, appErr.Message)
		return
	}
	dto.InternalError(c, "internal server error")
}
