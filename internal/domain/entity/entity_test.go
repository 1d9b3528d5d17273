package entity

import (
	"testing"
)

func TestBriefNormalizeDefaults(t *testing.T) {
	b := &Brief{Topic: "数字化转型", TargetAudience: "中小企业主"}
	b.Normalize()

	if b.Format != FormatCarousel {
		t.Errorf("expected default format %s, got %s", FormatCarousel, b.Format)
	}
	if b.ProfileType != ProfileCompany {
		t.Errorf("expected default profile_type %s, got %s", ProfileCompany, b.ProfileType)
	}
	if b.ResearchLevel != ResearchNone {
		t.Errorf("expected default research_level %s, got %s", ResearchNone, b.ResearchLevel)
	}
}

func TestBriefValidate(t *testing.T) {
	tests := []struct {
		name    string
		brief   Brief
		wantErr bool
	}{
		{
			name:  "valid",
			brief: Brief{Topic: "t", TargetAudience: "a", Format: FormatCarousel, ProfileType: ProfileCompany, ResearchLevel: ResearchNone},
		},
		{
			name:    "missing topic",
			brief:   Brief{TargetAudience: "a", Format: FormatCarousel, ProfileType: ProfileCompany, ResearchLevel: ResearchNone},
			wantErr: true,
		},
		{
			name:    "missing audience",
			brief:   Brief{Topic: "t", Format: FormatCarousel, ProfileType: ProfileCompany, ResearchLevel: ResearchNone},
			wantErr: true,
		},
		{
			name:    "invalid format",
			brief:   Brief{Topic: "t", TargetAudience: "a", Format: "poster", ProfileType: ProfileCompany, ResearchLevel: ResearchNone},
			wantErr: true,
		},
		{
			name:    "invalid research level",
			brief:   Brief{Topic: "t", TargetAudience: "a", Format: FormatCarousel, ProfileType: ProfileCompany, ResearchLevel: "extreme"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.brief.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStrategyValidate(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		wantErr  bool
	}{
		{name: "min slides", strategy: Strategy{SlideCount: 5, KeyMessages: []string{"m"}}},
		{name: "max slides", strategy: Strategy{SlideCount: 7, KeyMessages: []string{"m"}}},
		{name: "too few slides", strategy: Strategy{SlideCount: 4, KeyMessages: []string{"m"}}, wantErr: true},
		{name: "too many slides", strategy: Strategy{SlideCount: 8, KeyMessages: []string{"m"}}, wantErr: true},
		{name: "empty key messages", strategy: Strategy{SlideCount: 5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.strategy.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCopyValidate(t *testing.T) {
	makeSlides := func(types ...SlideType) []SlideContent {
		out := make([]SlideContent, 0, len(types))
		for _, typ := range types {
			out = append(out, SlideContent{Type: typ, Headline: "h"})
		}
		return out
	}

	valid := &Copy{Slides: makeSlides(SlideTypeHook, SlideTypeContent, SlideTypeContent, SlideTypeContent, SlideTypeCTA)}
	if err := valid.Validate(5); err != nil {
		t.Errorf("valid copy rejected: %v", err)
	}

	wrongCount := &Copy{Slides: makeSlides(SlideTypeHook, SlideTypeContent, SlideTypeCTA)}
	if err := wrongCount.Validate(5); err == nil {
		t.Error("expected slide count mismatch error")
	}

	noHook := &Copy{Slides: makeSlides(SlideTypeContent, SlideTypeContent, SlideTypeContent, SlideTypeContent, SlideTypeCTA)}
	if err := noHook.Validate(5); err == nil {
		t.Error("expected hook position error")
	}

	noCTA := &Copy{Slides: makeSlides(SlideTypeHook, SlideTypeContent, SlideTypeContent, SlideTypeContent, SlideTypeContent)}
	if err := noCTA.Validate(5); err == nil {
		t.Error("expected cta position error")
	}

	ctaInMiddle := &Copy{Slides: makeSlides(SlideTypeHook, SlideTypeCTA, SlideTypeContent, SlideTypeContent, SlideTypeCTA)}
	if err := ctaInMiddle.Validate(5); err == nil {
		t.Error("expected middle slide type error")
	}
}

func TestQualityReviewNormalize(t *testing.T) {
	tests := []struct {
		name      string
		review    QualityReview
		wantScore int
		wantRegen bool
	}{
		{name: "below threshold", review: QualityReview{OverallScore: 69, NeedsRegeneration: false}, wantScore: 69, wantRegen: true},
		{name: "at threshold", review: QualityReview{OverallScore: 70, NeedsRegeneration: true}, wantScore: 70, wantRegen: false},
		{name: "model lies about regeneration", review: QualityReview{OverallScore: 90, NeedsRegeneration: true}, wantScore: 90, wantRegen: false},
		{name: "clamp negative", review: QualityReview{OverallScore: -5}, wantScore: 0, wantRegen: true},
		{name: "clamp overflow", review: QualityReview{OverallScore: 120}, wantScore: 100, wantRegen: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.review.Normalize()
			if tt.review.OverallScore != tt.wantScore {
				t.Errorf("score = %d, want %d", tt.review.OverallScore, tt.wantScore)
			}
			if tt.review.NeedsRegeneration != tt.wantRegen {
				t.Errorf("needs_regeneration = %v, want %v", tt.review.NeedsRegeneration, tt.wantRegen)
			}
		})
	}
}

func TestDefaultPassingReview(t *testing.T) {
	r := DefaultPassingReview("llm timeout")
	if r.OverallScore != DefaultReviewScore {
		t.Errorf("score = %d, want %d", r.OverallScore, DefaultReviewScore)
	}
	if r.NeedsRegeneration {
		t.Error("default passing review must not require regeneration")
	}
	if len(r.Issues) == 0 {
		t.Error("expected an issue entry noting the reviewer failure")
	}
}

func TestSortImagesBySlideIndex(t *testing.T) {
	images := []GeneratedImage{
		{SlideIndex: 4},
		{SlideIndex: 0},
		{SlideIndex: 2},
	}
	SortImagesBySlideIndex(images)
	for i := 1; i < len(images); i++ {
		if images[i-1].SlideIndex > images[i].SlideIndex {
			t.Fatalf("images not sorted: %v", images)
		}
	}
}
