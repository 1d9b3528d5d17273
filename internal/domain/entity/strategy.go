package entity

import "fmt"

// 叙事策略允许的幻灯片数量边界
const (
	MinSlideCount = 5
	MaxSlideCount = 7
)

// Strategy 策略师产出的叙事计划
type Strategy struct {
	Hook         string   `json:"hook"`
	NarrativeArc string   `json:"narrative_arc"`
	SlideCount   int      `json:"slide_count"`
	KeyMessages  []string `json:"key_messages"`
}

// Validate 校验策略不变量：5 ≤ slideCount ≤ 7，keyMessages 非空
func (s *Strategy) Validate() error {
	if s.SlideCount < MinSlideCount || s.SlideCount > MaxSlideCount {
		return fmt.Errorf("slide_count %d out of range [%d,%d]", s.SlideCount, MinSlideCount, MaxSlideCount)
	}
	if len(s.KeyMessages) == 0 {
		return fmt.Errorf("key_messages must not be empty")
	}
	return nil
}
