// Package service 提供跨层共享的领域服务与上下文工具
package service

import (
	"context"
	"strings"
)

type llmCtxKey string

const (
	llmCtxKeyAgent    llmCtxKey = "llm_agent"
	llmCtxKeyProvider llmCtxKey = "llm_provider"
)

// WithAgent 在 context 中标记当前调用所属的 agent（strategist/copywriter/reviewer）
func WithAgent(ctx context.Context, agent string) context.Context {
	if ctx == nil {
		return nil
	}
	a := strings.TrimSpace(agent)
	if a == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyAgent, a)
}

// WithProvider 在 context 中标记当前调用的 LLM 提供商
func WithProvider(ctx context.Context, provider string) context.Context {
	if ctx == nil {
		return nil
	}
	p := strings.TrimSpace(provider)
	if p == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyProvider, p)
}

// WithAgentProvider 同时标记 agent 与提供商
func WithAgentProvider(ctx context.Context, agent, provider string) context.Context {
	return WithProvider(WithAgent(ctx, agent), provider)
}

// AgentFromContext 读取当前 agent 标记，缺省返回 unknown
func AgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	v := ctx.Value(llmCtxKeyAgent)
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return strings.TrimSpace(s)
}

// ProviderFromContext 读取当前提供商标记，缺省返回 unknown
func ProviderFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	v := ctx.Value(llmCtxKeyProvider)
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return strings.TrimSpace(s)
}
