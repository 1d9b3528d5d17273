package node

import (
	"strings"
)

// BuildProofPointsBlock 将卖点列表拼成提示词片段
func BuildProofPointsBlock(points []string) string {
	cleaned := make([]string, 0, len(points))
	for _, p := range points {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		cleaned = append(cleaned, "- "+p)
	}
	if len(cleaned) == 0 {
		return ""
	}
	return "产品卖点：\n" + strings.Join(cleaned, "\n")
}

// BuildResearchBlock 将调研摘要拼成提示词片段
func BuildResearchBlock(summary string) string {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return ""
	}
	return "市场调研摘要：\n" + summary
}

// BuildKnowledgeBlock 将知识库检索结果拼成提示词片段
func BuildKnowledgeBlock(snippets []string) string {
	cleaned := make([]string, 0, len(snippets))
	for _, s := range snippets {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		cleaned = append(cleaned, "- "+s)
	}
	if len(cleaned) == 0 {
		return ""
	}
	return "品牌知识库：\n" + strings.Join(cleaned, "\n")
}

// BuildInspirationBlock 将历史高分文案拼成风格参考片段。
// 仅作风格参考，提示词中明确要求不得照抄。
func BuildInspirationBlock(examples []string) string {
	cleaned := make([]string, 0, len(examples))
	for _, e := range examples {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		cleaned = append(cleaned, "---\n"+e)
	}
	if len(cleaned) == 0 {
		return ""
	}
	return "过往高分文案（仅供风格参考，禁止照抄）：\n" + strings.Join(cleaned, "\n")
}

// BuildIssuesBlock 将质检问题列表拼成重写反馈片段
func BuildIssuesBlock(issues []string) string {
	cleaned := make([]string, 0, len(issues))
	for _, s := range issues {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		cleaned = append(cleaned, "- "+s)
	}
	if len(cleaned) == 0 {
		return ""
	}
	return "上一版存在的问题（必须逐条修正）：\n" + strings.Join(cleaned, "\n")
}
