// Package entity 定义领域实体
package entity

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// OutputFormat 输出形态
type OutputFormat string

const (
	FormatCarousel    OutputFormat = "carousel"
	FormatSingleImage OutputFormat = "single-image"
)

// ProfileType 发布主体类型
type ProfileType string

const (
	ProfileCompany     ProfileType = "company"
	ProfileSalesperson ProfileType = "salesperson"
)

// ResearchLevel 外部调研深度
type ResearchLevel string

const (
	ResearchNone  ResearchLevel = "none"
	ResearchLight ResearchLevel = "light"
	ResearchDeep  ResearchLevel = "deep"
)

// Brief 内容简报，单次流水线运行的输入契约。
// 运行开始后不可变，各阶段只读。
type Brief struct {
	Topic          string         `json:"topic"`
	TargetAudience string         `json:"target_audience"`
	PainPoint      string         `json:"pain_point,omitempty"`
	DesiredOutcome string         `json:"desired_outcome,omitempty"`
	CTAAction      string         `json:"cta_action,omitempty"`
	ProofPoints    pq.StringArray `json:"proof_points,omitempty" gorm:"type:text[]"`
	Format         OutputFormat   `json:"format"`
	ProfileType    ProfileType    `json:"profile_type,omitempty"`
	ResearchLevel  ResearchLevel  `json:"research_level,omitempty"`
}

// Normalize 填充缺省枚举值
func (b *Brief) Normalize() {
	if b.Format == "" {
		b.Format = FormatCarousel
	}
	if b.ProfileType == "" {
		b.ProfileType = ProfileCompany
	}
	if b.ResearchLevel == "" {
		b.ResearchLevel = ResearchNone
	}
}

// Validate 校验简报必填字段与枚举取值
func (b *Brief) Validate() error {
	if strings.TrimSpace(b.Topic) == "" {
		return fmt.Errorf("topic is required")
	}
	if strings.TrimSpace(b.TargetAudience) == "" {
		return fmt.Errorf("target_audience is required")
	}
	switch b.Format {
	case FormatCarousel, FormatSingleImage:
	default:
		return fmt.Errorf("invalid format: %s", b.Format)
	}
	switch b.ProfileType {
	case ProfileCompany, ProfileSalesperson:
	default:
		return fmt.Errorf("invalid profile_type: %s", b.ProfileType)
	}
	switch b.ResearchLevel {
	case ResearchNone, ResearchLight, ResearchDeep:
	default:
		return fmt.Errorf("invalid research_level: %s", b.ResearchLevel)
	}
	return nil
}
