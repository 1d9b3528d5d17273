// Package research 提供外部市场调研服务客户端
package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"z-carousel-ai-api/internal/config"
	"z-carousel-ai-api/internal/domain/entity"
)

// Client 调研服务客户端。
// light 与 deep 两档各自携带独立的超时预算，超时即放弃并让上层降级。
type Client struct {
	endpoint     string
	apiKey       string
	lightTimeout time.Duration
	deepTimeout  time.Duration
	httpClient   *http.Client
}

type researchRequest struct {
	Topic string `json:"topic"`
	Depth string `json:"depth"`
}

type researchResponse struct {
	Summary  string   `json:"summary"`
	Findings []string `json:"findings,omitempty"`
}

// NewClient 创建调研客户端
func NewClient(cfg *config.ResearchConfig) *Client {
	lightTimeout := cfg.LightTimeout
	if lightTimeout <= 0 {
		lightTimeout = 10 * time.Second
	}
	deepTimeout := cfg.DeepTimeout
	if deepTimeout <= 0 {
		deepTimeout = 15 * time.Second
	}
	return &Client{
		endpoint:     cfg.Endpoint,
		apiKey:       cfg.APIKey,
		lightTimeout: lightTimeout,
		deepTimeout:  deepTimeout,
		// 单次请求超时由调用侧按档位注入 context 控制
		httpClient: &http.Client{},
	}
}

// Research 按指定深度调研主题，返回可直接注入提示词的摘要文本
func (c *Client) Research(ctx context.Context, topic string, level entity.ResearchLevel) (string, error) {
	if strings.TrimSpace(topic) == "" {
		return "", fmt.Errorf("research topic is empty")
	}
	if level == entity.ResearchNone {
		return "", nil
	}

	timeout := c.lightTimeout
	if level == entity.ResearchDeep {
		timeout = c.deepTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reqBody, err := json.Marshal(&researchRequest{
		Topic: topic,
		Depth: string(level),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal research request: %w", err)
	}

	endpoint := strings.TrimRight(c.endpoint, "/")
	if endpoint == "" {
		return "", fmt.Errorf("research endpoint is empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid research endpoint: %w", err)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/v1/research"
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create research request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("research request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return "", fmt.Errorf("research request failed: status=%d", httpResp.StatusCode)
	}

	var resp researchResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", fmt.Errorf("failed to decode research response: %w", err)
	}

	summary := strings.TrimSpace(resp.Summary)
	if summary == "" && len(resp.Findings) > 0 {
		summary = strings.Join(resp.Findings, "\n")
	}
	if summary == "" {
		return "", fmt.Errorf("research returned empty summary")
	}
	return summary, nil
}
