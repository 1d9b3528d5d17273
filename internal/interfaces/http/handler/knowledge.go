package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"z-carousel-ai-api/internal/application/retrieval"
	"z-carousel-ai-api/internal/domain/entity"
	"z-carousel-ai-api/internal/interfaces/http/dto"
)

// KnowledgeHandler 知识库检索处理器
type KnowledgeHandler struct {
	engine *retrieval.Engine
}

// NewKnowledgeHandler 创建知识库检索处理器
func NewKnowledgeHandler(engine *retrieval.Engine) *KnowledgeHandler {
	return &KnowledgeHandler{engine: engine}
}

// Search 检索知识库
// @Summary 检索知识库
// @Description 关键词检索品牌知识语料，主要用于调试与人工核对
// @Tags Knowledge
// @Produce json
// @Param q query string true "查询文本"
// @Param source_type query string false "来源类型过滤"
// @Param max_results query int false "最大返回条数"
// @Success 200 {object} dto.Response[dto.KnowledgeSearchResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/knowledge/search [get]
func (h *KnowledgeHandler) Search(c *gin.Context) {
	queryText := c.Query("q")
	if queryText == "" {
		dto.BadRequest(c, "query parameter q is required")
		return
	}

	maxResults := 0
	if raw := c.Query("max_results"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			dto.BadRequest(c, "max_results must be a positive integer")
			return
		}
		maxResults = n
	}

	resp, err := h.engine.Search(c.Request.Context(), retrieval.Query{
		Text:       queryText,
		SourceType: entity.KnowledgeSourceType(c.Query("source_type")),
		MaxResults: maxResults,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.FromRetrievalResponse(resp))
}
