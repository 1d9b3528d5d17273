package agent

import (
	"context"
	"encoding/json"
	"strings"

	"z-carousel-ai-api/internal/application/retrieval"
	"z-carousel-ai-api/internal/config"
	"z-carousel-ai-api/internal/domain/entity"
	wfchain "z-carousel-ai-api/internal/workflow/chain"
	wfmodel "z-carousel-ai-api/internal/workflow/model"
	wfnode "z-carousel-ai-api/internal/workflow/node"
	apperrors "z-carousel-ai-api/pkg/errors"
	"z-carousel-ai-api/pkg/logger"
)

// Copywriter 文案师，把叙事策略落地成逐张幻灯片文案
type Copywriter struct {
	chain  *wfchain.CopywriterChain
	engine *retrieval.Engine
	brand  *config.BrandConfig
}

// NewCopywriter 创建文案师
func NewCopywriter(chain *wfchain.CopywriterChain, engine *retrieval.Engine, brand *config.BrandConfig) *Copywriter {
	return &Copywriter{chain: chain, engine: engine, brand: brand}
}

// GenerateCopy 生成文案。issues 为上一轮质检反馈，首轮传 nil。
func (c *Copywriter) GenerateCopy(ctx context.Context, brief *entity.Brief, strategy *entity.Strategy, issues []string) (*entity.Copy, error) {
	ctaAction := brief.CTAAction
	if strings.TrimSpace(ctaAction) == "" && c.brand != nil {
		ctaAction = c.brand.DefaultCTA
	}

	in := &wfmodel.CopywriterInput{
		Topic:            brief.Topic,
		TargetAudience:   brief.TargetAudience,
		PainPoint:        brief.PainPoint,
		CTAAction:        ctaAction,
		Format:           string(brief.Format),
		ProfileType:      string(brief.ProfileType),
		BrandTone:        c.brandTone(),
		Hook:             strategy.Hook,
		NarrativeArc:     strategy.NarrativeArc,
		SlideCount:       strategy.SlideCount,
		KeyMessages:      strategy.KeyMessages,
		ProofPointsBlock: wfnode.BuildProofPointsBlock(brief.ProofPoints),
		KnowledgeBlock:   c.knowledgeBlock(ctx, brief),
		IssuesBlock:      wfnode.BuildIssuesBlock(issues),
	}

	msg, err := c.chain.Invoke(ctx, in)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCopywriterFailed, "copywriter chain failed")
	}

	raw := wfnode.ExtractJSONObject(msg.Content)
	var draft wfmodel.CopyDraft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCopywriterFailed, "failed to parse copy output")
	}

	copyOut := &entity.Copy{
		Topic:   brief.Topic,
		Caption: strings.TrimSpace(draft.Caption),
		Slides:  make([]entity.SlideContent, 0, len(draft.Slides)),
	}
	for _, s := range draft.Slides {
		// 模型偶尔超出字数预算，按 rune 截断而非整体报错
		copyOut.Slides = append(copyOut.Slides, entity.SlideContent{
			Type:              entity.SlideType(strings.TrimSpace(s.Type)),
			Headline:          wfnode.TruncateByRunes(strings.TrimSpace(s.Headline), entity.MaxHeadlineRunes),
			Body:              wfnode.TruncateByRunes(strings.TrimSpace(s.Body), entity.MaxBodyRunes),
			VisualDescription: strings.TrimSpace(s.VisualDescription),
		})
	}

	if err := copyOut.Validate(strategy.SlideCount); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCopywriterFailed, "invalid copy structure")
	}
	return copyOut, nil
}

func (c *Copywriter) brandTone() string {
	if c.brand == nil {
		return ""
	}
	return c.brand.Tone
}

func (c *Copywriter) knowledgeBlock(ctx context.Context, brief *entity.Brief) string {
	if c.engine == nil {
		return ""
	}
	snippets, err := c.engine.Snippets(ctx, retrieval.Query{
		Text:       brief.Topic + " " + brief.PainPoint,
		SourceType: entity.SourceBrandGuidance,
	})
	if err != nil {
		logger.Warn(ctx, "knowledge retrieval failed for copywriter", "error", err)
		return ""
	}
	return wfnode.BuildKnowledgeBlock(snippets)
}
