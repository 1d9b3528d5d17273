package pipeline

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"z-carousel-ai-api/internal/application/agent"
	"z-carousel-ai-api/internal/application/retrieval"
	"z-carousel-ai-api/internal/application/tooling"
	"z-carousel-ai-api/internal/config"
	"z-carousel-ai-api/internal/domain/entity"
	wfchain "z-carousel-ai-api/internal/workflow/chain"
)

// scriptedChatModel 按调用次序返回预设响应，超出脚本后重复最后一条
type scriptedChatModel struct {
	mu        sync.Mutex
	responses []scriptedResponse
	calls     int
}

type scriptedResponse struct {
	content string
	err     error
}

func (m *scriptedChatModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.calls
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	m.calls++
	r := m.responses[idx]
	if r.err != nil {
		return nil, r.err
	}
	return &schema.Message{Role: schema.Assistant, Content: r.content}, nil
}

func (m *scriptedChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (m *scriptedChatModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type scriptedFactory struct {
	model model.BaseChatModel
}

func (f *scriptedFactory) Get(context.Context, string) (model.BaseChatModel, error) {
	return f.model, nil
}

type fakeKnowledgeRepo struct{}

func (fakeKnowledgeRepo) List(context.Context, entity.KnowledgeSourceType) ([]*entity.KnowledgeDocument, error) {
	return nil, nil
}

func (fakeKnowledgeRepo) Count(context.Context) (int64, error) { return 0, nil }

type fakeAssetRepo struct {
	assets []*entity.BrandAsset
	err    error
}

func (f *fakeAssetRepo) Search(context.Context, string, int) ([]*entity.BrandAsset, error) {
	return f.assets, f.err
}

type fakeImageGen struct {
	url string
	err error
}

func (f *fakeImageGen) Generate(context.Context, string) (string, error) {
	return f.url, f.err
}

// fakeRunRepo 内存运行记录仓储
type fakeRunRepo struct {
	mu      sync.Mutex
	runs    map[string]*entity.CarouselRun
	updates int
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{runs: map[string]*entity.CarouselRun{}}
}

func (f *fakeRunRepo) Create(_ context.Context, run *entity.CarouselRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[run.ID] = run
	return nil
}

func (f *fakeRunRepo) Update(_ context.Context, run *entity.CarouselRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[run.ID] = run
	f.updates++
	return nil
}

func (f *fakeRunRepo) GetByID(_ context.Context, id string) (*entity.CarouselRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs[id], nil
}

func (f *fakeRunRepo) ListByJob(_ context.Context, jobID string) ([]*entity.CarouselRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entity.CarouselRun, 0, len(f.runs))
	for _, run := range f.runs {
		if run.JobID == jobID {
			out = append(out, run)
		}
	}
	return out, nil
}

const strategyJSON = `{"hook":"获客成本还能降一半","narrative_arc":"问题-方案-行动","slide_count":5,"key_messages":["成本","效率"]}`

const copyOutputJSON = `{"caption":"三步降本 #B2B","slides":[` +
	`{"type":"hook","headline":"降本第一步","body":"b1","visual_description":"desk"},` +
	`{"type":"content","headline":"h2","body":"b2"},` +
	`{"type":"content","headline":"h3","body":"b3"},` +
	`{"type":"content","headline":"h4","body":"b4"},` +
	`{"type":"cta","headline":"关注我们","body":"b5"}]}`

func reviewJSON(score int) string {
	if score >= 70 {
		return `{"overall_score":` + strconv.Itoa(score) + `,"feedback":"好","needs_regeneration":false,"issues":[]}`
	}
	return `{"overall_score":` + strconv.Itoa(score) + `,"feedback":"弱","needs_regeneration":true,"issues":["钩子太弱"]}`
}

type orchestratorFixture struct {
	orchestrator *Orchestrator
	runs         *fakeRunRepo
	copyModel    *scriptedChatModel
	reviewModel  *scriptedChatModel
}

// newFixture 用脚本化的 LLM 搭建完整编排器：
// 策略与文案各自独立的模型脚本，素材检索走内存仓储
func newFixture(t *testing.T, strategistScript, copyScript, reviewScript []scriptedResponse, maxRegens int) *orchestratorFixture {
	t.Helper()

	brand := &config.BrandConfig{Tone: "专业", ImagePrompt: "clean corporate", DefaultCTA: "关注我们"}

	strategistModel := &scriptedChatModel{responses: strategistScript}
	copyModel := &scriptedChatModel{responses: copyScript}
	reviewModel := &scriptedChatModel{responses: reviewScript}

	strategist := agent.NewStrategist(
		wfchain.NewStrategistChain(&scriptedFactory{model: strategistModel}),
		nil, nil, nil, nil, brand, 0,
	)
	copywriter := agent.NewCopywriter(
		wfchain.NewCopywriterChain(&scriptedFactory{model: copyModel}),
		nil, brand,
	)

	engine := retrieval.NewEngine(fakeKnowledgeRepo{})
	asset := &entity.BrandAsset{Title: "office", URL: "https://cdn.example.com/office.png"}
	dispatcher := tooling.NewDispatcher(engine, &fakeAssetRepo{assets: []*entity.BrandAsset{asset}}, &fakeImageGen{url: "https://img.example.com/1.png"}, nil)
	designer := agent.NewDesigner(dispatcher, brand)

	reviewer := agent.NewReviewer(
		wfchain.NewReviewerChain(&scriptedFactory{model: reviewModel}),
		brand,
	)

	runs := newFakeRunRepo()
	orchestrator := NewOrchestrator(strategist, copywriter, designer, reviewer, runs, nil,
		&config.PipelineConfig{MaxRegenerations: maxRegens})

	return &orchestratorFixture{
		orchestrator: orchestrator,
		runs:         runs,
		copyModel:    copyModel,
		reviewModel:  reviewModel,
	}
}

func newRun() *entity.CarouselRun {
	brief := &entity.Brief{Topic: "B2B SaaS 获客", TargetAudience: "市场负责人"}
	brief.Normalize()
	return &entity.CarouselRun{ID: "run-1", Brief: brief, Status: entity.RunStatusQueued}
}

func ok(content string) []scriptedResponse {
	return []scriptedResponse{{content: content}}
}

func TestOrchestratorHappyPath(t *testing.T) {
	f := newFixture(t, ok(strategyJSON), ok(copyOutputJSON), ok(reviewJSON(90)), 1)
	run := newRun()
	emitter := NewEmitter(128)

	result, err := f.orchestrator.Run(context.Background(), run, emitter)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	emitter.Close()

	if result.Review.OverallScore != 90 {
		t.Errorf("score = %d, want 90", result.Review.OverallScore)
	}
	if len(result.Copy.Slides) != 5 {
		t.Errorf("slides = %d, want 5", len(result.Copy.Slides))
	}
	if len(result.Images) != 5 {
		t.Fatalf("images = %d, want one per slide", len(result.Images))
	}
	// 轮播只有首张、中间、末张配图，其余纯文字
	wantSources := map[int]entity.AssetSource{
		0: entity.AssetSourceReal,
		1: entity.AssetSourceTextOnly,
		2: entity.AssetSourceReal,
		3: entity.AssetSourceTextOnly,
		4: entity.AssetSourceReal,
	}
	for i, img := range result.Images {
		if img.SlideIndex != i {
			t.Errorf("image %d has slide_index %d", i, img.SlideIndex)
		}
		if img.AssetSource != wantSources[i] {
			t.Errorf("slide %d source = %s, want %s", i, img.AssetSource, wantSources[i])
		}
	}
	if f.copyModel.callCount() != 1 {
		t.Errorf("copywriter calls = %d, want 1 (no regeneration at passing score)", f.copyModel.callCount())
	}
	if run.Status != entity.RunStatusCompleted {
		t.Errorf("run status = %s, want %s", run.Status, entity.RunStatusCompleted)
	}
	if run.Result == nil || run.Strategy == nil {
		t.Error("expected strategy and result persisted on the run")
	}

	seen := map[EventType]bool{}
	for ev := range emitter.Events() {
		seen[ev.Type] = true
	}
	for _, typ := range []EventType{EventStep, EventStrategistResult, EventCopywriterResult, EventDesignerResult, EventImageProgress, EventAgentStatus} {
		if !seen[typ] {
			t.Errorf("missing progress event %s", typ)
		}
	}
	if seen[EventComplete] || seen[EventError] {
		t.Error("orchestrator must not emit terminal events")
	}
}

func TestOrchestratorRegeneratesOnLowScore(t *testing.T) {
	reviewScript := []scriptedResponse{
		{content: reviewJSON(60)},
		{content: reviewJSON(90)},
	}
	f := newFixture(t, ok(strategyJSON), ok(copyOutputJSON), reviewScript, 1)

	result, err := f.orchestrator.Run(context.Background(), newRun(), nil)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if f.copyModel.callCount() != 2 {
		t.Errorf("copywriter calls = %d, want 2 (one rewrite)", f.copyModel.callCount())
	}
	if result.Review.OverallScore != 90 {
		t.Errorf("final score = %d, want second review's 90", result.Review.OverallScore)
	}
	if result.Review.NeedsRegeneration {
		t.Error("final review must pass")
	}
}

func TestOrchestratorRegenerationBound(t *testing.T) {
	// 评分始终低于阈值：只允许一次重写，然后按当前产出交付
	f := newFixture(t, ok(strategyJSON), ok(copyOutputJSON), ok(reviewJSON(60)), 1)

	result, err := f.orchestrator.Run(context.Background(), newRun(), nil)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if f.copyModel.callCount() != 2 {
		t.Errorf("copywriter calls = %d, want 2 (initial + capped rewrite)", f.copyModel.callCount())
	}
	if result.Review.OverallScore != 60 {
		t.Errorf("score = %d, want 60 delivered as-is", result.Review.OverallScore)
	}
	if !result.Review.NeedsRegeneration {
		t.Error("delivered review should still flag regeneration")
	}
}

func TestOrchestratorZeroRegenerations(t *testing.T) {
	f := newFixture(t, ok(strategyJSON), ok(copyOutputJSON), ok(reviewJSON(60)), 0)

	if _, err := f.orchestrator.Run(context.Background(), newRun(), nil); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if f.copyModel.callCount() != 1 {
		t.Errorf("copywriter calls = %d, want 1 when regeneration disabled", f.copyModel.callCount())
	}
}

func TestOrchestratorStrategistFailureIsFatal(t *testing.T) {
	f := newFixture(t, []scriptedResponse{{err: errors.New("llm down")}}, ok(copyOutputJSON), ok(reviewJSON(90)), 1)
	run := newRun()

	if _, err := f.orchestrator.Run(context.Background(), run, nil); err == nil {
		t.Fatal("strategist failure must fail the run")
	}
	if run.Status != entity.RunStatusFailed {
		t.Errorf("run status = %s, want %s", run.Status, entity.RunStatusFailed)
	}
	if run.ErrorText == "" {
		t.Error("expected failure reason on the run record")
	}
	if f.copyModel.callCount() != 0 {
		t.Error("copywriter must not run without a strategy")
	}
}

func TestOrchestratorFirstWriteFailureIsFatal(t *testing.T) {
	f := newFixture(t, ok(strategyJSON), []scriptedResponse{{err: errors.New("llm down")}}, ok(reviewJSON(90)), 1)
	run := newRun()

	if _, err := f.orchestrator.Run(context.Background(), run, nil); err == nil {
		t.Fatal("first copywriter failure must fail the run")
	}
	if run.Status != entity.RunStatusFailed {
		t.Errorf("run status = %s, want %s", run.Status, entity.RunStatusFailed)
	}
}

func TestOrchestratorRewriteFailureKeepsPreviousResult(t *testing.T) {
	copyScript := []scriptedResponse{
		{content: copyOutputJSON},
		{err: errors.New("llm down")},
	}
	f := newFixture(t, ok(strategyJSON), copyScript, ok(reviewJSON(60)), 1)
	run := newRun()

	result, err := f.orchestrator.Run(context.Background(), run, nil)
	if err != nil {
		t.Fatalf("rewrite failure must not fail the run: %v", err)
	}
	if result.Copy == nil || !strings.Contains(result.Copy.Caption, "三步降本") {
		t.Error("expected the first round's copy to survive")
	}
	if result.Review.OverallScore != 60 {
		t.Errorf("score = %d, want first round's 60", result.Review.OverallScore)
	}
	if run.Status != entity.RunStatusCompleted {
		t.Errorf("run status = %s, want %s", run.Status, entity.RunStatusCompleted)
	}
}

func TestOrchestratorReviewerFailureDeliversDefault(t *testing.T) {
	f := newFixture(t, ok(strategyJSON), ok(copyOutputJSON), []scriptedResponse{{err: errors.New("llm down")}}, 1)

	result, err := f.orchestrator.Run(context.Background(), newRun(), nil)
	if err != nil {
		t.Fatalf("reviewer failure must not fail the run: %v", err)
	}
	if result.Review.OverallScore != entity.DefaultReviewScore {
		t.Errorf("score = %d, want default %d", result.Review.OverallScore, entity.DefaultReviewScore)
	}
	if f.copyModel.callCount() != 1 {
		t.Error("default passing review must not trigger regeneration")
	}
}

func TestOrchestratorSingleImageFormatAllVisual(t *testing.T) {
	f := newFixture(t, ok(strategyJSON), ok(copyOutputJSON), ok(reviewJSON(90)), 1)
	run := newRun()
	run.Brief.Format = entity.FormatSingleImage

	result, err := f.orchestrator.Run(context.Background(), run, nil)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	for _, img := range result.Images {
		if img.AssetSource != entity.AssetSourceReal {
			t.Errorf("slide %d source = %s, single-image format must resolve every slide", img.SlideIndex, img.AssetSource)
		}
	}
}
