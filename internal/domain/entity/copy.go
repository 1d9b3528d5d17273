package entity

import "fmt"

// SlideType 幻灯片类型
type SlideType string

const (
	SlideTypeHook    SlideType = "hook"
	SlideTypeContent SlideType = "content"
	SlideTypeCTA     SlideType = "cta"
)

// 文案长度预算（按 rune 计，留少量模型超额余量）
const (
	MaxHeadlineRunes = 70
	MaxBodyRunes     = 140
)

// SlideContent 单张幻灯片文案
type SlideContent struct {
	Type              SlideType `json:"type"`
	Headline          string    `json:"headline"`
	Body              string    `json:"body"`
	VisualDescription string    `json:"visual_description,omitempty"`
}

// Copy 文案聚合：标题文案 + 配文
type Copy struct {
	Topic   string         `json:"topic"`
	Caption string         `json:"caption"`
	Slides  []SlideContent `json:"slides"`
}

// Validate 校验文案不变量：数量与策略一致，首张 hook、末张 cta、中间 content
func (c *Copy) Validate(expectedSlides int) error {
	if len(c.Slides) != expectedSlides {
		return fmt.Errorf("expected %d slides, got %d", expectedSlides, len(c.Slides))
	}
	if len(c.Slides) == 0 {
		return fmt.Errorf("slides must not be empty")
	}
	if c.Slides[0].Type != SlideTypeHook {
		return fmt.Errorf("slide 0 must be %s, got %s", SlideTypeHook, c.Slides[0].Type)
	}
	last := len(c.Slides) - 1
	if c.Slides[last].Type != SlideTypeCTA {
		return fmt.Errorf("slide %d must be %s, got %s", last, SlideTypeCTA, c.Slides[last].Type)
	}
	for i := 1; i < last; i++ {
		if c.Slides[i].Type != SlideTypeContent {
			return fmt.Errorf("slide %d must be %s, got %s", i, SlideTypeContent, c.Slides[i].Type)
		}
	}
	return nil
}
