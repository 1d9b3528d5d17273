package agent

import (
	"context"
	"encoding/json"
	"strings"

	"z-carousel-ai-api/internal/config"
	"z-carousel-ai-api/internal/domain/entity"
	wfchain "z-carousel-ai-api/internal/workflow/chain"
	wfmodel "z-carousel-ai-api/internal/workflow/model"
	wfnode "z-carousel-ai-api/internal/workflow/node"
	"z-carousel-ai-api/pkg/logger"
)

// Reviewer 质检员。
// 评审本身失败不能拖垮整次运行：任何失败都返回放行评审，
// needsRegeneration 始终由分数阈值派生，不信任模型自述。
type Reviewer struct {
	chain *wfchain.ReviewerChain
	brand *config.BrandConfig
}

// NewReviewer 创建质检员
func NewReviewer(chain *wfchain.ReviewerChain, brand *config.BrandConfig) *Reviewer {
	return &Reviewer{chain: chain, brand: brand}
}

// Review 评审文案与视觉组合质量，永不返回 error
func (r *Reviewer) Review(ctx context.Context, brief *entity.Brief, copy *entity.Copy, images []entity.GeneratedImage) *entity.QualityReview {
	payload := struct {
		Copy   *entity.Copy            `json:"copy"`
		Images []entity.GeneratedImage `json:"images,omitempty"`
	}{Copy: copy, Images: images}

	copyJSON, err := json.Marshal(payload)
	if err != nil {
		logger.Warn(ctx, "failed to serialize copy for review", "error", err)
		return entity.DefaultPassingReview(err.Error())
	}

	in := &wfmodel.ReviewerInput{
		Topic:          brief.Topic,
		TargetAudience: brief.TargetAudience,
		PainPoint:      brief.PainPoint,
		BrandTone:      r.brandTone(),
		CopyJSON:       string(copyJSON),
	}

	msg, err := r.chain.Invoke(ctx, in)
	if err != nil {
		logger.Warn(ctx, "reviewer chain failed, using default passing review", "error", err)
		return entity.DefaultPassingReview(err.Error())
	}

	raw := wfnode.ExtractJSONObject(msg.Content)
	var draft wfmodel.ReviewDraft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		logger.Warn(ctx, "failed to parse review output, using default passing review", "error", err)
		return entity.DefaultPassingReview(err.Error())
	}

	review := &entity.QualityReview{
		OverallScore:      draft.OverallScore,
		Feedback:          strings.TrimSpace(draft.Feedback),
		NeedsRegeneration: draft.NeedsRegeneration,
		Issues:            draft.Issues,
		Strengths:         draft.Strengths,
	}
	review.Normalize()
	return review
}

func (r *Reviewer) brandTone() string {
	if r.brand == nil {
		return ""
	}
	return r.brand.Tone
}
