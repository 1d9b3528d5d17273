package dto

import (
	"z-carousel-ai-api/internal/application/retrieval"
)

// KnowledgeSearchResult 单条检索结果
type KnowledgeSearchResult struct {
	Content        string `json:"content"`
	SourceType     string `json:"source_type"`
	SourceID       string `json:"source_id"`
	Category       string `json:"category,omitempty"`
	RelevanceScore int    `json:"relevance_score"`
}

// KnowledgeSearchResponse 检索响应。语料为空时 Results 为空且 Message 非空。
type KnowledgeSearchResponse struct {
	Results []KnowledgeSearchResult `json:"results"`
	Message string                  `json:"message,omitempty"`
}

// FromRetrievalResponse 把检索引擎响应映射成 DTO
func FromRetrievalResponse(resp *retrieval.Response) *KnowledgeSearchResponse {
	out := &KnowledgeSearchResponse{
		Results: make([]KnowledgeSearchResult, 0, len(resp.Results)),
		Message: resp.Message,
	}
	for _, r := range resp.Results {
		out.Results = append(out.Results, KnowledgeSearchResult{
			Content:        r.Document.Content,
			SourceType:     string(r.Document.SourceType),
			SourceID:       r.Document.SourceID,
			Category:       r.Document.Category,
			RelevanceScore: r.Score,
		})
	}
	return out
}
