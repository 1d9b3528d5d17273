// Package router 提供 HTTP 路由配置
package router

import (
	"z-carousel-ai-api/internal/interfaces/http/handler"

	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(
	v1 *gin.RouterGroup,
	carouselHandler *handler.CarouselHandler,
	knowledgeHandler *handler.KnowledgeHandler,
) {
	// 轮播生成
	carousels := v1.Group("/carousels")
	{
		carousels.POST("/generate", carouselHandler.Generate)
		carousels.POST("/jobs", carouselHandler.CreateJob)
		carousels.GET("/jobs/:id", carouselHandler.GetJob)
		carousels.GET("/runs/:id", carouselHandler.GetRun)
	}

	// 知识库检索（调试用）
	knowledge := v1.Group("/knowledge")
	{
		knowledge.GET("/search", knowledgeHandler.Search)
	}
}
