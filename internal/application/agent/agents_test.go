package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"z-carousel-ai-api/internal/config"
	"z-carousel-ai-api/internal/domain/entity"
	wfchain "z-carousel-ai-api/internal/workflow/chain"
)

// fakeChatModel 返回固定内容的 ChatModel，generate 可按调用自定义
type fakeChatModel struct {
	generate func(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

func (m *fakeChatModel) Generate(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return m.generate(ctx, msgs, opts...)
}

func (m *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

type fakeFactory struct {
	model model.BaseChatModel
	err   error
}

func (f *fakeFactory) Get(context.Context, string) (model.BaseChatModel, error) {
	return f.model, f.err
}

// cannedModel 始终返回同一段文本
func cannedModel(content string) *fakeChatModel {
	return &fakeChatModel{
		generate: func(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
			return &schema.Message{Role: schema.Assistant, Content: content}, nil
		},
	}
}

func failingModel(err error) *fakeChatModel {
	return &fakeChatModel{
		generate: func(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
			return nil, err
		},
	}
}

func testBrief() *entity.Brief {
	b := &entity.Brief{
		Topic:          "B2B SaaS 获客",
		TargetAudience: "市场负责人",
		PainPoint:      "线索成本高",
	}
	b.Normalize()
	return b
}

func testBrand() *config.BrandConfig {
	return &config.BrandConfig{
		Tone:        "专业、可信",
		ImagePrompt: "clean corporate illustration",
		DefaultCTA:  "关注我们",
	}
}

const validStrategyJSON = `{"hook":"获客成本还能降一半","narrative_arc":"问题-方案-证明-行动","slide_count":5,"key_messages":["成本","效率"]}`

func TestStrategistGenerateStrategy(t *testing.T) {
	chain := wfchain.NewStrategistChain(&fakeFactory{model: cannedModel(validStrategyJSON)})
	s := NewStrategist(chain, nil, nil, nil, nil, testBrand(), 0)

	strategy, err := s.GenerateStrategy(context.Background(), testBrief())
	if err != nil {
		t.Fatalf("GenerateStrategy() error: %v", err)
	}
	if strategy.SlideCount != 5 {
		t.Errorf("slide_count = %d, want 5", strategy.SlideCount)
	}
	if strategy.Hook == "" || strategy.NarrativeArc == "" {
		t.Error("expected hook and narrative_arc to be populated")
	}
	if len(strategy.KeyMessages) != 2 {
		t.Errorf("key_messages = %v", strategy.KeyMessages)
	}
}

func TestStrategistOutOfRangeSlideCountIsFatal(t *testing.T) {
	out := `{"hook":"h","narrative_arc":"n","slide_count":4,"key_messages":["m"]}`
	chain := wfchain.NewStrategistChain(&fakeFactory{model: cannedModel(out)})
	s := NewStrategist(chain, nil, nil, nil, nil, testBrand(), 0)

	if _, err := s.GenerateStrategy(context.Background(), testBrief()); err == nil {
		t.Fatal("out-of-range slide_count must fail the run, not be clamped")
	}
}

func TestStrategistParseFailureIsFatal(t *testing.T) {
	chain := wfchain.NewStrategistChain(&fakeFactory{model: cannedModel("很抱歉，我无法完成这个任务")})
	s := NewStrategist(chain, nil, nil, nil, nil, testBrand(), 0)

	if _, err := s.GenerateStrategy(context.Background(), testBrief()); err == nil {
		t.Fatal("unparseable output must be fatal")
	}
}

func TestStrategistChainErrorIsFatal(t *testing.T) {
	chain := wfchain.NewStrategistChain(&fakeFactory{model: failingModel(errors.New("llm down"))})
	s := NewStrategist(chain, nil, nil, nil, nil, testBrand(), 0)

	if _, err := s.GenerateStrategy(context.Background(), testBrief()); err == nil {
		t.Fatal("llm failure must be fatal")
	}
}

func copyJSON(headline string) string {
	var b strings.Builder
	b.WriteString(`{"caption":"三步降本 #B2B #SaaS #获客","slides":[`)
	b.WriteString(`{"type":"hook","headline":"` + headline + `","body":"b","visual_description":"office desk"},`)
	b.WriteString(`{"type":"content","headline":"h2","body":"b2"},`)
	b.WriteString(`{"type":"content","headline":"h3","body":"b3"},`)
	b.WriteString(`{"type":"content","headline":"h4","body":"b4"},`)
	b.WriteString(`{"type":"cta","headline":"h5","body":"b5"}]}`)
	return b.String()
}

func testStrategy() *entity.Strategy {
	return &entity.Strategy{
		Hook:         "获客成本还能降一半",
		NarrativeArc: "问题-方案-证明-行动",
		SlideCount:   5,
		KeyMessages:  []string{"成本", "效率"},
	}
}

func TestCopywriterGenerateCopy(t *testing.T) {
	chain := wfchain.NewCopywriterChain(&fakeFactory{model: cannedModel(copyJSON("降本第一步"))})
	c := NewCopywriter(chain, nil, testBrand())

	copyOut, err := c.GenerateCopy(context.Background(), testBrief(), testStrategy(), nil)
	if err != nil {
		t.Fatalf("GenerateCopy() error: %v", err)
	}
	if len(copyOut.Slides) != 5 {
		t.Fatalf("slides = %d, want 5", len(copyOut.Slides))
	}
	if copyOut.Slides[0].Type != entity.SlideTypeHook {
		t.Errorf("slide 0 type = %s", copyOut.Slides[0].Type)
	}
	if copyOut.Slides[4].Type != entity.SlideTypeCTA {
		t.Errorf("last slide type = %s", copyOut.Slides[4].Type)
	}
	if copyOut.Topic != testBrief().Topic {
		t.Errorf("topic = %q", copyOut.Topic)
	}
}

func TestCopywriterTruncatesOverBudgetHeadline(t *testing.T) {
	longHeadline := strings.Repeat("长", entity.MaxHeadlineRunes+10)
	chain := wfchain.NewCopywriterChain(&fakeFactory{model: cannedModel(copyJSON(longHeadline))})
	c := NewCopywriter(chain, nil, testBrand())

	copyOut, err := c.GenerateCopy(context.Background(), testBrief(), testStrategy(), nil)
	if err != nil {
		t.Fatalf("GenerateCopy() error: %v", err)
	}
	got := []rune(copyOut.Slides[0].Headline)
	if len(got) != entity.MaxHeadlineRunes {
		t.Errorf("headline runes = %d, want %d (over-budget output must be truncated, not rejected)", len(got), entity.MaxHeadlineRunes)
	}
}

func TestCopywriterSlideCountMismatchIsFatal(t *testing.T) {
	out := `{"caption":"c","slides":[{"type":"hook","headline":"h"},{"type":"cta","headline":"c"}]}`
	chain := wfchain.NewCopywriterChain(&fakeFactory{model: cannedModel(out)})
	c := NewCopywriter(chain, nil, testBrand())

	if _, err := c.GenerateCopy(context.Background(), testBrief(), testStrategy(), nil); err == nil {
		t.Fatal("slide count mismatch must be fatal")
	}
}

func TestCopywriterUsesBrandDefaultCTA(t *testing.T) {
	var captured []*schema.Message
	m := &fakeChatModel{
		generate: func(_ context.Context, msgs []*schema.Message, _ ...model.Option) (*schema.Message, error) {
			captured = msgs
			return &schema.Message{Role: schema.Assistant, Content: copyJSON("h1")}, nil
		},
	}
	chain := wfchain.NewCopywriterChain(&fakeFactory{model: m})
	c := NewCopywriter(chain, nil, testBrand())

	if _, err := c.GenerateCopy(context.Background(), testBrief(), testStrategy(), nil); err != nil {
		t.Fatalf("GenerateCopy() error: %v", err)
	}

	found := false
	for _, msg := range captured {
		if strings.Contains(msg.Content, testBrand().DefaultCTA) {
			found = true
		}
	}
	if !found {
		t.Error("expected brand default CTA in the prompt when brief omits cta_action")
	}
}

func TestReviewerNormalizesModelOutput(t *testing.T) {
	// 模型声称无需重写，但分数低于阈值，派生不变量必须覆盖模型自述
	out := `{"overall_score":60,"feedback":"平淡","needs_regeneration":false,"issues":["钩子太弱"]}`
	chain := wfchain.NewReviewerChain(&fakeFactory{model: cannedModel(out)})
	r := NewReviewer(chain, testBrand())

	review := r.Review(context.Background(), testBrief(), &entity.Copy{}, nil)
	if review.OverallScore != 60 {
		t.Errorf("score = %d, want 60", review.OverallScore)
	}
	if !review.NeedsRegeneration {
		t.Error("score below threshold must force needs_regeneration")
	}
}

func TestReviewerDefaultOnChainFailure(t *testing.T) {
	chain := wfchain.NewReviewerChain(&fakeFactory{model: failingModel(errors.New("llm down"))})
	r := NewReviewer(chain, testBrand())

	review := r.Review(context.Background(), testBrief(), &entity.Copy{}, nil)
	if review.OverallScore != entity.DefaultReviewScore {
		t.Errorf("score = %d, want default %d", review.OverallScore, entity.DefaultReviewScore)
	}
	if review.NeedsRegeneration {
		t.Error("default review must pass the quality gate")
	}
	if len(review.Issues) == 0 {
		t.Error("expected an issue entry noting the reviewer failure")
	}
}

func TestReviewerDefaultOnParseFailure(t *testing.T) {
	chain := wfchain.NewReviewerChain(&fakeFactory{model: cannedModel("not json at all")})
	r := NewReviewer(chain, testBrand())

	review := r.Review(context.Background(), testBrief(), &entity.Copy{}, nil)
	if review.OverallScore != entity.DefaultReviewScore {
		t.Errorf("score = %d, want default %d", review.OverallScore, entity.DefaultReviewScore)
	}
}
