package model

// ReviewerInput 质检员链路输入
type ReviewerInput struct {
	Topic          string
	TargetAudience string
	PainPoint      string
	BrandTone      string

	// CopyJSON 待评审文案的 JSON 序列化
	CopyJSON string

	Provider string
	Model    string

	Temperature *float32
	MaxTokens   *int
}

// ReviewDraft 质检员原始产出
type ReviewDraft struct {
	OverallScore      int      `json:"overall_score"`
	Feedback          string   `json:"feedback"`
	NeedsRegeneration bool     `json:"needs_regeneration"`
	Issues            []string `json:"issues"`
	Strengths         []string `json:"strengths"`
}
