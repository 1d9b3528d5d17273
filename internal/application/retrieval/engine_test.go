package retrieval

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"z-carousel-ai-api/internal/domain/entity"
)

type fakeKnowledgeRepo struct {
	docs []*entity.KnowledgeDocument
	err  error
}

func (f *fakeKnowledgeRepo) List(_ context.Context, sourceType entity.KnowledgeSourceType) ([]*entity.KnowledgeDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	if sourceType == "" {
		return f.docs, nil
	}
	out := make([]*entity.KnowledgeDocument, 0, len(f.docs))
	for _, d := range f.docs {
		if d.SourceType == sourceType {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeKnowledgeRepo) Count(_ context.Context) (int64, error) {
	return int64(len(f.docs)), nil
}

func TestTokenize(t *testing.T) {
	got := Tokenize("B2B, SaaS 获客策略! ok")
	want := []string{"b2b", "saas", "获客策略"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestTokenizeOnlyShortTokens(t *testing.T) {
	if got := Tokenize("a of 在 ok"); len(got) != 0 {
		t.Errorf("expected no terms, got %v", got)
	}
}

func TestSearchScoring(t *testing.T) {
	repo := &fakeKnowledgeRepo{docs: []*entity.KnowledgeDocument{
		{SourceID: "doc-a", Content: "pricing pricing strategy"},
		{SourceID: "doc-b", Content: "nothing relevant here", Keywords: []string{"pricing"}},
		{SourceID: "pricing-guide", Content: "unrelated body"},
	}}
	engine := NewEngine(repo)

	resp, err := engine.Search(context.Background(), Query{Text: "pricing"})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.Results))
	}

	// doc-a: 2 次内容命中 = 4；doc-b: 关键词命中 = 5；pricing-guide: sourceId 命中 = 3
	if resp.Results[0].Document.SourceID != "doc-b" || resp.Results[0].Score != 5 {
		t.Errorf("top result = %s score %d, want doc-b score 5", resp.Results[0].Document.SourceID, resp.Results[0].Score)
	}
	if resp.Results[1].Document.SourceID != "doc-a" || resp.Results[1].Score != 4 {
		t.Errorf("second result = %s score %d, want doc-a score 4", resp.Results[1].Document.SourceID, resp.Results[1].Score)
	}
	if resp.Results[2].Document.SourceID != "pricing-guide" || resp.Results[2].Score != 3 {
		t.Errorf("third result = %s score %d, want pricing-guide score 3", resp.Results[2].Document.SourceID, resp.Results[2].Score)
	}
}

func TestSearchStableTieBreak(t *testing.T) {
	repo := &fakeKnowledgeRepo{docs: []*entity.KnowledgeDocument{
		{SourceID: "first", Content: "pricing intro"},
		{SourceID: "second", Content: "pricing basics"},
		{SourceID: "third", Content: "pricing recap"},
	}}
	engine := NewEngine(repo)

	resp, err := engine.Search(context.Background(), Query{Text: "pricing"})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}

	order := []string{"first", "second", "third"}
	for i, want := range order {
		if resp.Results[i].Document.SourceID != want {
			t.Errorf("position %d = %s, want %s (ties must keep corpus order)", i, resp.Results[i].Document.SourceID, want)
		}
	}
}

func TestSearchDropsZeroScores(t *testing.T) {
	repo := &fakeKnowledgeRepo{docs: []*entity.KnowledgeDocument{
		{SourceID: "hit", Content: "pricing"},
		{SourceID: "miss", Content: "completely different"},
	}}
	engine := NewEngine(repo)

	resp, err := engine.Search(context.Background(), Query{Text: "pricing"})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Document.SourceID != "hit" {
		t.Errorf("expected only the matching document, got %d results", len(resp.Results))
	}
}

func TestSearchMaxResults(t *testing.T) {
	docs := make([]*entity.KnowledgeDocument, 0, 8)
	for i := 0; i < 8; i++ {
		docs = append(docs, &entity.KnowledgeDocument{SourceID: "doc", Content: "pricing"})
	}
	engine := NewEngine(&fakeKnowledgeRepo{docs: docs})

	resp, err := engine.Search(context.Background(), Query{Text: "pricing"})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(resp.Results) != DefaultMaxResults {
		t.Errorf("expected default cap %d, got %d", DefaultMaxResults, len(resp.Results))
	}

	resp, err = engine.Search(context.Background(), Query{Text: "pricing", MaxResults: 2})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Errorf("expected 2 results, got %d", len(resp.Results))
	}
}

func TestSearchEmptyCorpus(t *testing.T) {
	engine := NewEngine(&fakeKnowledgeRepo{})

	resp, err := engine.Search(context.Background(), Query{Text: "pricing"})
	if err != nil {
		t.Fatalf("empty corpus must not be an error, got: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("expected no results, got %d", len(resp.Results))
	}
	if resp.Message != EmptyCorpusMessage {
		t.Errorf("message = %q, want %q", resp.Message, EmptyCorpusMessage)
	}
}

func TestSearchSourceTypeFilter(t *testing.T) {
	repo := &fakeKnowledgeRepo{docs: []*entity.KnowledgeDocument{
		{SourceID: "brand", SourceType: entity.SourceBrandGuidance, Content: "pricing tone"},
		{SourceID: "pain", SourceType: entity.SourcePainPointCatalog, Content: "pricing pain"},
	}}
	engine := NewEngine(repo)

	resp, err := engine.Search(context.Background(), Query{Text: "pricing", SourceType: entity.SourcePainPointCatalog})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Document.SourceID != "pain" {
		t.Errorf("expected only pain_point_catalog documents, got %v", resp.Results)
	}
}

func TestSnippetsEmptyCorpus(t *testing.T) {
	engine := NewEngine(&fakeKnowledgeRepo{})

	snippets, err := engine.Snippets(context.Background(), Query{Text: "pricing"})
	if err != nil {
		t.Fatalf("Snippets() error: %v", err)
	}
	if len(snippets) != 1 || snippets[0] != EmptyCorpusMessage {
		t.Errorf("expected the empty-corpus message, got %v", snippets)
	}
}

func TestSearchRepoError(t *testing.T) {
	engine := NewEngine(&fakeKnowledgeRepo{err: errors.New("db down")})

	if _, err := engine.Search(context.Background(), Query{Text: "pricing"}); err == nil {
		t.Error("expected error to propagate")
	}
}
