package entity

// QualityGateThreshold 质量门阈值：低于该分数触发重写
const QualityGateThreshold = 70

// DefaultReviewScore 评审自身失败时的兜底评分
const DefaultReviewScore = 75

// QualityReview 质量评审结果
type QualityReview struct {
	OverallScore      int      `json:"overall_score"`
	Feedback          string   `json:"feedback"`
	NeedsRegeneration bool     `json:"needs_regeneration"`
	Issues            []string `json:"issues,omitempty"`
	Strengths         []string `json:"strengths,omitempty"`
}

// Normalize 收敛评分并强制派生不变量 needsRegeneration == (score < 70)。
// 模型自述的 needsRegeneration 不可信，一律覆盖。
func (r *QualityReview) Normalize() {
	if r.OverallScore < 0 {
		r.OverallScore = 0
	}
	if r.OverallScore > 100 {
		r.OverallScore = 100
	}
	r.NeedsRegeneration = r.OverallScore < QualityGateThreshold
}

// DefaultPassingReview 评审组件失败时的兜底评审：放行内容而非阻断整次运行
func DefaultPassingReview(reason string) *QualityReview {
	r := &QualityReview{
		OverallScore: DefaultReviewScore,
		Feedback:     "quality review unavailable, shipping content as-is",
		Issues:       []string{"quality reviewer failed: " + reason},
	}
	r.Normalize()
	return r
}
