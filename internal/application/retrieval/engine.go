// Package retrieval 提供知识库的确定性关键词检索引擎
package retrieval

import (
	"context"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-carousel-ai-api/internal/domain/entity"
	"z-carousel-ai-api/internal/domain/repository"
	"z-carousel-ai-api/pkg/metrics"
)

var tracer = otel.Tracer("retrieval")

// DefaultMaxResults 未指定时的返回条数上限
const DefaultMaxResults = 5

// EmptyCorpusMessage 语料为空时返回的提示，直接注入提示词告知模型
const EmptyCorpusMessage = "knowledge base is empty, no grounding material available"

// 打分权重：内容命中按出现次数累加，关键词与来源命中一次性加分
const (
	contentOccurrenceWeight = 2
	keywordMatchWeight      = 5
	sourceIDMatchWeight     = 3
)

// Query 检索请求
type Query struct {
	Text       string
	SourceType entity.KnowledgeSourceType
	MaxResults int
}

// Result 单条检索结果
type Result struct {
	Document *entity.KnowledgeDocument
	Score    int
}

// Response 检索响应。语料为空时 Results 为空且 Message 非空。
type Response struct {
	Results []Result
	Message string
}

// Engine 关键词检索引擎。
// 全量扫描打分而非倒排索引：语料量级在千条以内，确定性优先于吞吐。
type Engine struct {
	repo repository.KnowledgeRepository
}

// NewEngine 创建检索引擎
func NewEngine(repo repository.KnowledgeRepository) *Engine {
	return &Engine{repo: repo}
}

// Search 对指定来源的语料做关键词打分检索。
// 同分文档保持语料插入顺序，保证同一查询的结果完全可复现。
func (e *Engine) Search(ctx context.Context, q Query) (*Response, error) {
	ctx, span := tracer.Start(ctx, "retrieval.Search",
		trace.WithAttributes(
			attribute.String("source_type", string(q.SourceType)),
			attribute.Int("max_results", q.MaxResults),
		))
	defer span.End()

	sourceLabel := string(q.SourceType)
	if sourceLabel == "" {
		sourceLabel = "all"
	}

	docs, err := e.repo.List(ctx, q.SourceType)
	if err != nil {
		span.RecordError(err)
		metrics.KnowledgeSearchTotal.WithLabelValues(sourceLabel, "error").Inc()
		return nil, err
	}

	if len(docs) == 0 {
		metrics.KnowledgeSearchTotal.WithLabelValues(sourceLabel, "empty").Inc()
		return &Response{Message: EmptyCorpusMessage}, nil
	}

	terms := Tokenize(q.Text)
	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	results := make([]Result, 0, len(docs))
	for _, doc := range docs {
		score := scoreDocument(doc, terms)
		if score > 0 {
			results = append(results, Result{Document: doc, Score: score})
		}
	}

	// 稳定排序：同分保持 List 返回的插入顺序
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > maxResults {
		results = results[:maxResults]
	}

	span.SetAttributes(attribute.Int("result_count", len(results)))
	metrics.KnowledgeSearchTotal.WithLabelValues(sourceLabel, "success").Inc()
	return &Response{Results: results}, nil
}

// Snippets 以纯文本片段返回检索结果，供提示词拼装使用
func (e *Engine) Snippets(ctx context.Context, q Query) ([]string, error) {
	resp, err := e.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if resp.Message != "" {
		return []string{resp.Message}, nil
	}
	snippets := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		snippets = append(snippets, r.Document.Content)
	}
	return snippets, nil
}

// Tokenize 将查询拆成小写检索词，过滤长度不超过 2 的短词
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', '\r', ',', '.', ';', ':', '!', '?', '"', '\'', '(', ')', '[', ']', '{', '}', '/', '\\', '，', '。', '；', '：', '！', '？':
			return true
		}
		return false
	})
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) <= 2 {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

// scoreDocument 对单篇文档累加各检索词的命中分
func scoreDocument(doc *entity.KnowledgeDocument, terms []string) int {
	if len(terms) == 0 {
		return 0
	}

	content := strings.ToLower(doc.Content)
	sourceID := strings.ToLower(doc.SourceID)
	keywords := make([]string, 0, len(doc.Keywords))
	for _, k := range doc.Keywords {
		keywords = append(keywords, strings.ToLower(k))
	}

	score := 0
	for _, term := range terms {
		if n := strings.Count(content, term); n > 0 {
			score += n * contentOccurrenceWeight
		}
		for _, k := range keywords {
			if k == term {
				score += keywordMatchWeight
				break
			}
		}
		if strings.Contains(sourceID, term) {
			score += sourceIDMatchWeight
		}
	}
	return score
}
