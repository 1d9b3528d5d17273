package entity

import (
	"time"

	"github.com/lib/pq"
)

// KnowledgeSourceType 知识库文档来源类型
type KnowledgeSourceType string

const (
	SourceBrandGuidance    KnowledgeSourceType = "brand_guidance"
	SourceMarketResearch   KnowledgeSourceType = "market_research"
	SourcePainPointCatalog KnowledgeSourceType = "pain_point_catalog"
	SourceCompetitiveIntel KnowledgeSourceType = "competitive_intel"
)

// KnowledgeMetadata 文档元数据
type KnowledgeMetadata struct {
	Keywords pq.StringArray `json:"keywords" gorm:"type:text[]"`
	Category string         `json:"category"`
}

// KnowledgeDocument 知识库语料单元。
// 由外部系统维护，流水线侧只读。
type KnowledgeDocument struct {
	ID         string              `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SourceType KnowledgeSourceType `json:"source_type" gorm:"type:varchar(50);index;not null"`
	SourceID   string              `json:"source_id" gorm:"type:varchar(128);uniqueIndex:idx_knowledge_source;not null"`
	Content    string              `json:"content" gorm:"type:text;not null"`
	Keywords   pq.StringArray      `json:"keywords" gorm:"type:text[]"`
	Category   string              `json:"category" gorm:"type:varchar(100)"`
	CreatedAt  time.Time           `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time           `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (KnowledgeDocument) TableName() string {
	return "knowledge_documents"
}

// Metadata 以元数据视图返回关键词与分类
func (d *KnowledgeDocument) Metadata() KnowledgeMetadata {
	return KnowledgeMetadata{Keywords: d.Keywords, Category: d.Category}
}
