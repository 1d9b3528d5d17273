package tooling

import (
	"context"
	"testing"

	"z-carousel-ai-api/internal/domain/entity"
)

func TestCachedResearcherNilInner(t *testing.T) {
	r := NewCachedResearcher(nil, nil, 0)

	summary, err := r.Research(context.Background(), "AI marketing", entity.ResearchLight)
	if err != nil {
		t.Fatalf("Research() error: %v", err)
	}
	if summary != "" {
		t.Errorf("summary = %q, want empty when no researcher configured", summary)
	}
}

func TestCachedResearcherPassthroughWithoutCache(t *testing.T) {
	inner := &fakeResearcher{summary: "market summary"}
	r := NewCachedResearcher(inner, nil, 0)

	summary, err := r.Research(context.Background(), "AI marketing", entity.ResearchDeep)
	if err != nil {
		t.Fatalf("Research() error: %v", err)
	}
	if summary != "market summary" {
		t.Errorf("summary = %q", summary)
	}
	if inner.level != entity.ResearchDeep {
		t.Errorf("level = %s, want %s", inner.level, entity.ResearchDeep)
	}
}
