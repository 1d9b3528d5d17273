package entity

import (
	"time"

	"github.com/lib/pq"
)

// BrandAsset 品牌素材库中的真实素材。
// 设计师优先使用真实素材，找不到时才降级到 AI 生成。
type BrandAsset struct {
	ID          string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title       string         `json:"title" gorm:"type:varchar(255);not null"`
	Description string         `json:"description,omitempty" gorm:"type:text"`
	URL         string         `json:"url" gorm:"type:varchar(1024);not null"`
	Tags        pq.StringArray `json:"tags" gorm:"type:text[]"`
	Category    string         `json:"category,omitempty" gorm:"type:varchar(100)"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (BrandAsset) TableName() string {
	return "brand_assets"
}
