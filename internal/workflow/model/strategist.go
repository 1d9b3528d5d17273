package model

// StrategistInput 策略师链路输入。
// 各 block 由应用层预先拼好，链路只负责模板填充与模型调用。
type StrategistInput struct {
	Topic          string
	TargetAudience string
	PainPoint      string
	DesiredOutcome string
	Format         string
	ProfileType    string
	BrandTone      string

	ProofPointsBlock string
	ResearchBlock    string
	KnowledgeBlock   string
	InspirationBlock string

	Provider string
	Model    string

	Temperature *float32
	MaxTokens   *int
}

// StrategyDraft 策略师原始产出，解析后再转领域实体
type StrategyDraft struct {
	Hook         string   `json:"hook"`
	NarrativeArc string   `json:"narrative_arc"`
	SlideCount   int      `json:"slide_count"`
	KeyMessages  []string `json:"key_messages"`
}
