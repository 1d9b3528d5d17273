package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"z-carousel-ai-api/internal/application/tooling"
	"z-carousel-ai-api/internal/domain/entity"
)

type recordingAssetRepo struct {
	mu      sync.Mutex
	queries []string
	assets  []*entity.BrandAsset
	err     error
}

func (f *recordingAssetRepo) Search(_ context.Context, query string, _ int) ([]*entity.BrandAsset, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	return f.assets, f.err
}

type recordingImageGen struct {
	mu      sync.Mutex
	prompts []string
	url     string
	err     error
}

func (f *recordingImageGen) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.url, f.err
}

func slides(n int) []entity.SlideContent {
	out := make([]entity.SlideContent, n)
	for i := range out {
		out[i] = entity.SlideContent{Type: entity.SlideTypeContent, Headline: "标题", Body: "正文"}
	}
	out[0].Type = entity.SlideTypeHook
	out[n-1].Type = entity.SlideTypeCTA
	return out
}

func carouselBrief() *entity.Brief {
	b := &entity.Brief{Topic: "t", TargetAudience: "a"}
	b.Normalize()
	return b
}

func TestVisualSlideIndexes(t *testing.T) {
	for _, n := range []int{5, 6, 7} {
		visual := visualSlideIndexes(entity.FormatCarousel, n)
		if len(visual) != 3 {
			t.Errorf("n=%d: got %d visual slides, want 3 distinct", n, len(visual))
		}
		for _, idx := range []int{0, n / 2, n - 1} {
			if !visual[idx] {
				t.Errorf("n=%d: index %d must be visual", n, idx)
			}
		}
	}

	all := visualSlideIndexes(entity.FormatSingleImage, 6)
	if len(all) != 6 {
		t.Errorf("single-image: got %d visual slides, want all 6", len(all))
	}
}

func TestGenerateImagesFallsBackToGeneration(t *testing.T) {
	assets := &recordingAssetRepo{err: errors.New("db down")}
	gen := &recordingImageGen{url: "https://img.example.com/1.png"}
	d := NewDesigner(tooling.NewDispatcher(nil, assets, gen, nil), testBrand())

	copyOut := &entity.Copy{Slides: slides(5)}
	images, err := d.GenerateImages(context.Background(), carouselBrief(), copyOut, nil)
	if err != nil {
		t.Fatalf("GenerateImages() error: %v", err)
	}
	for i, img := range images {
		want := entity.AssetSourceTextOnly
		if i == 0 || i == 2 || i == 4 {
			want = entity.AssetSourceAIGenerated
		}
		if img.AssetSource != want {
			t.Errorf("slide %d source = %s, want %s", i, img.AssetSource, want)
		}
	}
	// 品牌视觉前缀必须出现在生成提示词里
	for _, prompt := range gen.prompts {
		if !strings.HasPrefix(prompt, testBrand().ImagePrompt) {
			t.Errorf("prompt %q missing brand preamble", prompt)
		}
	}
}

func TestGenerateImagesDoubleFailureIsTextOnly(t *testing.T) {
	assets := &recordingAssetRepo{err: errors.New("db down")}
	gen := &recordingImageGen{err: errors.New("api down")}
	d := NewDesigner(tooling.NewDispatcher(nil, assets, gen, nil), testBrand())

	copyOut := &entity.Copy{Slides: slides(5)}
	images, err := d.GenerateImages(context.Background(), carouselBrief(), copyOut, nil)
	if err != nil {
		t.Fatalf("double failure must degrade, not error: %v", err)
	}
	for _, img := range images {
		if img.AssetSource != entity.AssetSourceTextOnly {
			t.Errorf("slide %d source = %s, want text-only", img.SlideIndex, img.AssetSource)
		}
		if img.ImageURL != "" {
			t.Errorf("slide %d has image_url on text-only fallback", img.SlideIndex)
		}
	}
}

func TestGenerateImagesUsesHeadlinePrefixAsAssetQuery(t *testing.T) {
	assets := &recordingAssetRepo{assets: []*entity.BrandAsset{{Title: "office", URL: "https://cdn.example.com/o.png"}}}
	d := NewDesigner(tooling.NewDispatcher(nil, assets, nil, nil), testBrand())

	s := slides(5)
	s[0].Headline = "one two three four five six seven eight"
	copyOut := &entity.Copy{Slides: s}

	if _, err := d.GenerateImages(context.Background(), carouselBrief(), copyOut, nil); err != nil {
		t.Fatalf("GenerateImages() error: %v", err)
	}

	found := false
	for _, q := range assets.queries {
		if q == "one two three four five six" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a query of the first six headline words, got %v", assets.queries)
	}
}

func TestGenerateImagesProgress(t *testing.T) {
	assets := &recordingAssetRepo{assets: []*entity.BrandAsset{{URL: "https://cdn.example.com/o.png"}}}
	d := NewDesigner(tooling.NewDispatcher(nil, assets, nil, nil), testBrand())

	var mu sync.Mutex
	var completed []int
	progress := func(_, done, total int) {
		mu.Lock()
		defer mu.Unlock()
		completed = append(completed, done)
		if total != 3 {
			t.Errorf("total = %d, want 3", total)
		}
	}

	copyOut := &entity.Copy{Slides: slides(7)}
	if _, err := d.GenerateImages(context.Background(), carouselBrief(), copyOut, progress); err != nil {
		t.Fatalf("GenerateImages() error: %v", err)
	}

	if len(completed) != 3 {
		t.Fatalf("progress calls = %d, want one per visual slide", len(completed))
	}
	seen := map[int]bool{}
	for _, c := range completed {
		seen[c] = true
	}
	for want := 1; want <= 3; want++ {
		if !seen[want] {
			t.Errorf("missing completed count %d in %v", want, completed)
		}
	}
}

func TestGenerateImagesEmptyCopy(t *testing.T) {
	d := NewDesigner(tooling.NewDispatcher(nil, nil, nil, nil), testBrand())

	images, err := d.GenerateImages(context.Background(), carouselBrief(), &entity.Copy{}, nil)
	if err != nil {
		t.Fatalf("GenerateImages() error: %v", err)
	}
	if len(images) != 0 {
		t.Errorf("images = %d, want none", len(images))
	}
}

func TestImagePromptComposition(t *testing.T) {
	d := NewDesigner(nil, testBrand())

	slide := entity.SlideContent{Headline: "标题", Body: "正文", VisualDescription: "minimal desk"}
	got := d.imagePrompt(slide)
	want := testBrand().ImagePrompt + ", 标题, 正文, minimal desk"
	if got != want {
		t.Errorf("imagePrompt() = %q, want %q", got, want)
	}
}
