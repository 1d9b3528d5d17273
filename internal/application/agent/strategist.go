// Package agent 实现流水线中的各个生成角色
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einoembedding "github.com/cloudwego/eino/components/embedding"

	"z-carousel-ai-api/internal/application/retrieval"
	"z-carousel-ai-api/internal/application/tooling"
	"z-carousel-ai-api/internal/config"
	"z-carousel-ai-api/internal/domain/entity"
	"z-carousel-ai-api/internal/domain/repository"
	wfchain "z-carousel-ai-api/internal/workflow/chain"
	wfmodel "z-carousel-ai-api/internal/workflow/model"
	wfnode "z-carousel-ai-api/internal/workflow/node"
	apperrors "z-carousel-ai-api/pkg/errors"
	"z-carousel-ai-api/pkg/logger"
)

// Strategist 叙事策略师。
// 失败即整次运行失败：没有策略后续阶段全部无从谈起。
type Strategist struct {
	chain        *wfchain.StrategistChain
	engine       *retrieval.Engine
	researcher   tooling.Researcher
	embedder     einoembedding.Embedder
	inspirations repository.InspirationRepository
	brand        *config.BrandConfig
	topK         int
}

// NewStrategist 创建策略师。
// embedder 与 inspirations 可为 nil：风格参考是可选增强，缺失时静默降级。
func NewStrategist(
	chain *wfchain.StrategistChain,
	engine *retrieval.Engine,
	researcher tooling.Researcher,
	embedder einoembedding.Embedder,
	inspirations repository.InspirationRepository,
	brand *config.BrandConfig,
	topK int,
) *Strategist {
	if topK <= 0 {
		topK = 3
	}
	return &Strategist{
		chain:        chain,
		engine:       engine,
		researcher:   researcher,
		embedder:     embedder,
		inspirations: inspirations,
		brand:        brand,
		topK:         topK,
	}
}

// GenerateStrategy 生成叙事策略
func (s *Strategist) GenerateStrategy(ctx context.Context, brief *entity.Brief) (*entity.Strategy, error) {
	in := &wfmodel.StrategistInput{
		Topic:            brief.Topic,
		TargetAudience:   brief.TargetAudience,
		PainPoint:        brief.PainPoint,
		DesiredOutcome:   brief.DesiredOutcome,
		Format:           string(brief.Format),
		ProfileType:      string(brief.ProfileType),
		BrandTone:        s.brandTone(),
		ProofPointsBlock: wfnode.BuildProofPointsBlock(brief.ProofPoints),
		ResearchBlock:    s.researchBlock(ctx, brief),
		KnowledgeBlock:   s.knowledgeBlock(ctx, brief),
		InspirationBlock: s.inspirationBlock(ctx, brief),
	}

	msg, err := s.chain.Invoke(ctx, in)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStrategistFailed, "strategist chain failed")
	}

	raw := wfnode.ExtractJSONObject(msg.Content)
	var draft wfmodel.StrategyDraft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStrategistFailed, "failed to parse strategy output")
	}

	strategy := &entity.Strategy{
		Hook:         strings.TrimSpace(draft.Hook),
		NarrativeArc: strings.TrimSpace(draft.NarrativeArc),
		SlideCount:   draft.SlideCount,
		KeyMessages:  draft.KeyMessages,
	}

	// slide_count 越界视为模型输出不可信，整次运行失败而非悄悄截断
	if err := strategy.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStrategistFailed, "invalid strategy")
	}
	return strategy, nil
}

func (s *Strategist) brandTone() string {
	if s.brand == nil {
		return ""
	}
	return s.brand.Tone
}

// knowledgeBlock 检索品牌知识库做策略依据，失败降级为空
func (s *Strategist) knowledgeBlock(ctx context.Context, brief *entity.Brief) string {
	if s.engine == nil {
		return ""
	}
	query := brief.Topic + " " + brief.TargetAudience + " " + brief.PainPoint
	snippets, err := s.engine.Snippets(ctx, retrieval.Query{Text: query})
	if err != nil {
		logger.Warn(ctx, "knowledge retrieval failed, continuing without grounding",
			"error", err,
		)
		return ""
	}
	return wfnode.BuildKnowledgeBlock(snippets)
}

// researchBlock 按简报要求的深度做外部调研，失败降级为空
func (s *Strategist) researchBlock(ctx context.Context, brief *entity.Brief) string {
	if s.researcher == nil || brief.ResearchLevel == entity.ResearchNone {
		return ""
	}
	summary, err := s.researcher.Research(ctx, brief.Topic, brief.ResearchLevel)
	if err != nil {
		logger.Warn(ctx, "research failed, continuing without summary",
			"level", brief.ResearchLevel,
			"error", err,
		)
		return ""
	}
	return wfnode.BuildResearchBlock(summary)
}

// inspirationBlock 检索历史高分文案做风格参考，任何失败静默降级
func (s *Strategist) inspirationBlock(ctx context.Context, brief *entity.Brief) string {
	if s.embedder == nil || s.inspirations == nil {
		return ""
	}

	vectors, err := s.embedder.EmbedStrings(ctx, []string{brief.Topic + " " + brief.TargetAudience})
	if err != nil || len(vectors) == 0 {
		logger.Warn(ctx, "inspiration embedding failed", "error", err)
		return ""
	}

	vector := make([]float32, len(vectors[0]))
	for i, v := range vectors[0] {
		vector[i] = float32(v)
	}

	examples, err := s.inspirations.Search(ctx, vector, s.topK)
	if err != nil {
		logger.Warn(ctx, "inspiration search failed", "error", err)
		return ""
	}
	return wfnode.BuildInspirationBlock(examples)
}

// EmbedCopy 计算文案向量，供高分产出写回风格库
func (s *Strategist) EmbedCopy(ctx context.Context, text string) ([]float32, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	vectors, err := s.embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	vector := make([]float32, len(vectors[0]))
	for i, v := range vectors[0] {
		vector[i] = float32(v)
	}
	return vector, nil
}
