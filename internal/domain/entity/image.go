package entity

import "sort"

// AssetSource 幻灯片视觉素材来源
type AssetSource string

const (
	AssetSourceReal        AssetSource = "real"
	AssetSourceAIGenerated AssetSource = "ai-generated"
	AssetSourceTextOnly    AssetSource = "text-only"
)

// GeneratedImage 单张幻灯片的视觉素材解析结果。
// ImageURL 为空当且仅当 AssetSource 为 text-only。
type GeneratedImage struct {
	SlideIndex     int         `json:"slide_index"`
	ImageURL       string      `json:"image_url"`
	AssetSource    AssetSource `json:"asset_source"`
	SourceAssetURL string      `json:"source_asset_url,omitempty"`
}

// SortImagesBySlideIndex 按幻灯片下标升序排序（并发收集后恢复确定性顺序）
func SortImagesBySlideIndex(images []GeneratedImage) {
	sort.Slice(images, func(i, j int) bool {
		return images[i].SlideIndex < images[j].SlideIndex
	})
}
