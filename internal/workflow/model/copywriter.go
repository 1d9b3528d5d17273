package model

// CopywriterInput 文案师链路输入
type CopywriterInput struct {
	Topic          string
	TargetAudience string
	PainPoint      string
	CTAAction      string
	Format         string
	ProfileType    string
	BrandTone      string

	Hook         string
	NarrativeArc string
	SlideCount   int
	KeyMessages  []string

	ProofPointsBlock string
	KnowledgeBlock   string
	// IssuesBlock 重写轮携带的质检反馈，首轮为空
	IssuesBlock string

	Provider string
	Model    string

	Temperature *float32
	MaxTokens   *int
}

// SlideDraft 单张幻灯片的原始文案
type SlideDraft struct {
	Type              string `json:"type"`
	Headline          string `json:"headline"`
	Body              string `json:"body"`
	VisualDescription string `json:"visual_description"`
}

// CopyDraft 文案师原始产出
type CopyDraft struct {
	Caption string       `json:"caption"`
	Slides  []SlideDraft `json:"slides"`
}
