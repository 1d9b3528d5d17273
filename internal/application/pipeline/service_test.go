package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"z-carousel-ai-api/internal/config"
	"z-carousel-ai-api/internal/domain/entity"
	"z-carousel-ai-api/internal/infrastructure/messaging"
	apperrors "z-carousel-ai-api/pkg/errors"
)

func newTestService(t *testing.T, reviewScript []scriptedResponse) (*Service, *orchestratorFixture) {
	t.Helper()
	f := newFixture(t, ok(strategyJSON), ok(copyOutputJSON), reviewScript, 1)
	svc := NewService(f.orchestrator, f.runs, nil, &config.PipelineConfig{MaxBatchSize: 3, EventBufferSize: 256})
	return svc, f
}

func TestValidateBatch(t *testing.T) {
	svc := NewService(nil, nil, nil, &config.PipelineConfig{MaxBatchSize: 3})

	for _, count := range []int{1, 2, 3} {
		if err := svc.ValidateBatch(count); err != nil {
			t.Errorf("ValidateBatch(%d) = %v, want nil", count, err)
		}
	}
	for _, count := range []int{0, -1, 4} {
		err := svc.ValidateBatch(count)
		if err == nil {
			t.Errorf("ValidateBatch(%d) = nil, want error", count)
			continue
		}
		if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeInvalidParam {
			t.Errorf("ValidateBatch(%d) code = %s, want invalid param", count, appErr.Code)
		}
	}
}

func TestServiceGenerateBatch(t *testing.T) {
	svc, _ := newTestService(t, ok(reviewJSON(90)))

	brief := &entity.Brief{Topic: "B2B SaaS 获客", TargetAudience: "市场负责人"}
	brief.Normalize()
	emitter := svc.NewEmitter()

	results, err := svc.Generate(context.Background(), []*entity.Brief{brief, brief}, emitter)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2 independent runs", len(results))
	}

	var last Event
	for ev := range emitter.Events() {
		last = ev
	}
	if last.Type != EventComplete {
		t.Errorf("last event = %s, want %s", last.Type, EventComplete)
	}
	complete, ok := last.Data.(CompleteData)
	if !ok || len(complete.Carousels) != 2 {
		t.Errorf("complete payload = %#v, want both carousels", last.Data)
	}
}

func TestServiceGenerateFatalItemAbortsBatch(t *testing.T) {
	f := newFixture(t, []scriptedResponse{{err: errors.New("llm down")}}, ok(copyOutputJSON), ok(reviewJSON(90)), 1)
	svc := NewService(f.orchestrator, f.runs, nil, &config.PipelineConfig{MaxBatchSize: 3, EventBufferSize: 256})

	brief := &entity.Brief{Topic: "t", TargetAudience: "a"}
	brief.Normalize()
	emitter := svc.NewEmitter()

	if _, err := svc.Generate(context.Background(), []*entity.Brief{brief, brief}, emitter); err == nil {
		t.Fatal("fatal item must abort the batch")
	}

	var last Event
	for ev := range emitter.Events() {
		last = ev
	}
	if last.Type != EventError {
		t.Errorf("last event = %s, want %s", last.Type, EventError)
	}
}

func TestServiceGenerateNilEmitter(t *testing.T) {
	svc, _ := newTestService(t, ok(reviewJSON(90)))

	brief := &entity.Brief{Topic: "t", TargetAudience: "a"}
	brief.Normalize()

	results, err := svc.Generate(context.Background(), []*entity.Brief{brief}, nil)
	if err != nil {
		t.Fatalf("Generate() with nil emitter: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("results = %d, want 1", len(results))
	}
}

func TestServiceGetRunNotFound(t *testing.T) {
	svc, _ := newTestService(t, ok(reviewJSON(90)))

	_, err := svc.GetRun(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected not found error")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeNotFound {
		t.Errorf("GetRun() code = %s, want not found", appErr.Code)
	}
}

func TestServiceGetJobNotFound(t *testing.T) {
	svc, _ := newTestService(t, ok(reviewJSON(90)))

	_, err := svc.GetJob(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected not found error")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeNotFound {
		t.Errorf("GetJob() code = %s, want not found", appErr.Code)
	}
}

func TestServiceEnqueueWithoutProducer(t *testing.T) {
	svc, _ := newTestService(t, ok(reviewJSON(90)))

	brief := &entity.Brief{Topic: "t", TargetAudience: "a"}
	brief.Normalize()

	_, _, err := svc.EnqueueJob(context.Background(), []*entity.Brief{brief}, "req-1")
	if err == nil {
		t.Fatal("expected service unavailable error")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeServiceUnavailable {
		t.Errorf("EnqueueJob() code = %s, want service unavailable", appErr.Code)
	}
}

func TestHandleCarouselRunMalformedPayloadIsAcked(t *testing.T) {
	svc, _ := newTestService(t, ok(reviewJSON(90)))

	msg := &messaging.Message{ID: "m-1", Payload: json.RawMessage(`not json`)}
	if err := svc.HandleCarouselRun(context.Background(), msg); err != nil {
		t.Errorf("malformed payload must be acked, got %v", err)
	}

	msg = &messaging.Message{ID: "m-2", Payload: json.RawMessage(`{"run_id":"r1"}`)}
	if err := svc.HandleCarouselRun(context.Background(), msg); err != nil {
		t.Errorf("message without brief must be acked, got %v", err)
	}
}

func TestHandleCarouselRunRebuildsMissingRun(t *testing.T) {
	svc, f := newTestService(t, ok(reviewJSON(90)))

	brief := &entity.Brief{Topic: "t", TargetAudience: "a"}
	brief.Normalize()
	payload, err := json.Marshal(&messaging.CarouselRunMessage{JobID: "job-1", RunID: "run-queued", Brief: brief})
	if err != nil {
		t.Fatal(err)
	}

	msg := &messaging.Message{ID: "m-3", Type: messaging.MsgTypeCarouselRun, Payload: payload}
	if err := svc.HandleCarouselRun(context.Background(), msg); err != nil {
		t.Fatalf("HandleCarouselRun() error: %v", err)
	}

	run, err := f.runs.GetByID(context.Background(), "run-queued")
	if err != nil || run == nil {
		t.Fatal("expected the run rebuilt from the message and persisted")
	}
	if run.Status != entity.RunStatusCompleted {
		t.Errorf("run status = %s, want %s", run.Status, entity.RunStatusCompleted)
	}
}
