package agent

import (
	"context"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"z-carousel-ai-api/internal/application/tooling"
	"z-carousel-ai-api/internal/config"
	"z-carousel-ai-api/internal/domain/entity"
	"z-carousel-ai-api/pkg/logger"
	"z-carousel-ai-api/pkg/metrics"
)

// assetQueryWords 素材检索取标题前几个词，长查询召回反而更差
const assetQueryWords = 6

// ImageProgressFunc 单张素材完成回调，用于进度事件上报
type ImageProgressFunc func(slideIndex, completed, total int)

// Designer 视觉设计师。
// 不直接依赖素材库与图像生成服务，统一经工具分发器调用，
// 单张失败只降级该张，不中断整组产出。
type Designer struct {
	dispatcher *tooling.Dispatcher
	brand      *config.BrandConfig
}

// NewDesigner 创建设计师
func NewDesigner(dispatcher *tooling.Dispatcher, brand *config.BrandConfig) *Designer {
	return &Designer{dispatcher: dispatcher, brand: brand}
}

// GenerateImages 为整组文案解析视觉素材。
// 单图形态每张都配图；轮播只给关键位置（首张、中间、末张）配图，
// 其余走纯文字排版且不发起任何外部调用。并发解析后按 slide_index 排序返回。
// progress 可为 nil。
func (d *Designer) GenerateImages(ctx context.Context, brief *entity.Brief, copy *entity.Copy, progress ImageProgressFunc) ([]entity.GeneratedImage, error) {
	n := len(copy.Slides)
	if n == 0 {
		return nil, nil
	}

	visual := visualSlideIndexes(brief.Format, n)
	total := len(visual)

	images := make([]entity.GeneratedImage, n)
	g, gctx := errgroup.WithContext(ctx)
	var completed int64

	for i := range copy.Slides {
		i := i
		if !visual[i] {
			images[i] = entity.GeneratedImage{
				SlideIndex:  i,
				AssetSource: entity.AssetSourceTextOnly,
			}
			metrics.ImageResolutionTotal.WithLabelValues(string(entity.AssetSourceTextOnly)).Inc()
			continue
		}
		g.Go(func() error {
			images[i] = d.resolveSlide(gctx, copy.Slides[i], i)
			metrics.ImageResolutionTotal.WithLabelValues(string(images[i].AssetSource)).Inc()
			if progress != nil {
				progress(i, int(atomic.AddInt64(&completed, 1)), total)
			}
			return nil
		})
	}

	// resolveSlide 从不返回错误，Wait 仅用于等待全部完成
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entity.SortImagesBySlideIndex(images)
	return images, nil
}

// resolveSlide 按优先级解析单张素材：真实素材 → AI 生成 → 纯文字
func (d *Designer) resolveSlide(ctx context.Context, slide entity.SlideContent, index int) entity.GeneratedImage {
	// 优先检索真实素材库
	assetResult := d.dispatcher.Dispatch(ctx, tooling.ToolCall{
		Name:  tooling.ToolAssetSearch,
		Query: assetQuery(slide.Headline),
		Limit: 1,
	})
	if assetResult.OK && len(assetResult.Assets) > 0 {
		asset := assetResult.Assets[0]
		return entity.GeneratedImage{
			SlideIndex:     index,
			ImageURL:       asset.URL,
			AssetSource:    entity.AssetSourceReal,
			SourceAssetURL: asset.URL,
		}
	}

	// 降级到 AI 生成
	genResult := d.dispatcher.Dispatch(ctx, tooling.ToolCall{
		Name:  tooling.ToolImageGeneration,
		Query: d.imagePrompt(slide),
	})
	if genResult.OK && genResult.ImageURL != "" {
		return entity.GeneratedImage{
			SlideIndex:  index,
			ImageURL:    genResult.ImageURL,
			AssetSource: entity.AssetSourceAIGenerated,
		}
	}

	// 双重失败：降级纯文字而非失败整组
	logger.Warn(ctx, "image resolution failed for slide, falling back to text-only",
		"slide_index", index,
		"asset_error", assetResult.Error,
		"imagegen_error", genResult.Error,
	)
	return entity.GeneratedImage{
		SlideIndex:  index,
		AssetSource: entity.AssetSourceTextOnly,
	}
}

// imagePrompt 用品牌视觉前缀、标题与正文合成生成提示词，
// 有视觉描述时追加在最后
func (d *Designer) imagePrompt(slide entity.SlideContent) string {
	parts := make([]string, 0, 4)
	if d.brand != nil && strings.TrimSpace(d.brand.ImagePrompt) != "" {
		parts = append(parts, d.brand.ImagePrompt)
	}
	parts = append(parts, slide.Headline)
	if strings.TrimSpace(slide.Body) != "" {
		parts = append(parts, slide.Body)
	}
	if strings.TrimSpace(slide.VisualDescription) != "" {
		parts = append(parts, slide.VisualDescription)
	}
	return strings.Join(parts, ", ")
}

// assetQuery 截取标题前 assetQueryWords 个词做检索查询
func assetQuery(headline string) string {
	words := strings.Fields(headline)
	if len(words) > assetQueryWords {
		words = words[:assetQueryWords]
	}
	return strings.Join(words, " ")
}

// visualSlideIndexes 计算需要配图的幻灯片下标集合。
// 轮播固定 3-of-N 选位，是成本取舍而非实现便利。
func visualSlideIndexes(format entity.OutputFormat, n int) map[int]bool {
	visual := make(map[int]bool, n)
	if format == entity.FormatSingleImage {
		for i := 0; i < n; i++ {
			visual[i] = true
		}
		return visual
	}
	visual[0] = true
	visual[n/2] = true
	visual[n-1] = true
	return visual
}
