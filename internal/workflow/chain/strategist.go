// Package chain 提供基于 Eino compose 的 agent 调用链
package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	llmctx "z-carousel-ai-api/internal/domain/service"
	wfmodel "z-carousel-ai-api/internal/workflow/model"
	wfnode "z-carousel-ai-api/internal/workflow/node"
	workflowport "z-carousel-ai-api/internal/workflow/port"
	workflowprompt "z-carousel-ai-api/internal/workflow/prompt"
	"z-carousel-ai-api/pkg/logger"
)

var defaultPromptRegistry = workflowprompt.NewRegistry()

// StrategistChain 叙事策略生成链
type StrategistChain struct {
	factory workflowport.ChatModelFactory

	chainOnce sync.Once
	chain     compose.Runnable[*wfmodel.StrategistInput, *schema.Message]
	chainErr  error
}

func NewStrategistChain(factory workflowport.ChatModelFactory) *StrategistChain {
	return &StrategistChain{factory: factory}
}

func (c *StrategistChain) Invoke(ctx context.Context, in *wfmodel.StrategistInput) (*schema.Message, error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}

	chain, err := c.getChain()
	if err != nil {
		return nil, err
	}
	return chain.Invoke(ctx, in)
}

type strategistChainState struct {
	In       *wfmodel.StrategistInput
	Messages []*schema.Message
	OutMsg   *schema.Message
}

func (c *StrategistChain) getChain() (compose.Runnable[*wfmodel.StrategistInput, *schema.Message], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = c.buildChain(context.Background())
	})
	return c.chain, c.chainErr
}

func (c *StrategistChain) buildChain(ctx context.Context) (compose.Runnable[*wfmodel.StrategistInput, *schema.Message], error) {
	chain := compose.NewChain[*wfmodel.StrategistInput, *schema.Message]()

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, in *wfmodel.StrategistInput) (*strategistChainState, error) {
			if in == nil {
				return nil, fmt.Errorf("input is nil")
			}
			return &strategistChainState{In: in}, nil
		}),
		compose.WithNodeName("strategist.init"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *strategistChainState) (*strategistChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}
			msgs, err := formatStrategistMessages(ctx, st.In)
			if err != nil {
				return nil, err
			}
			st.Messages = msgs
			return st, nil
		}),
		compose.WithNodeName("strategist.template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *strategistChainState) (*strategistChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}
			if c.factory == nil {
				return nil, fmt.Errorf("llm factory not configured")
			}

			ctx = llmctx.WithAgentProvider(ctx, "strategist", strings.TrimSpace(st.In.Provider))
			chatModel, err := c.factory.Get(ctx, strings.TrimSpace(st.In.Provider))
			if err != nil {
				return nil, err
			}

			outMsg, err := chatModel.Generate(ctx, st.Messages, buildStrategistModelOptions(st.In, true)...)
			if err != nil && wfnode.IsResponseFormatUnsupportedError(err) {
				logger.Warn(ctx, "llm json_schema not supported, fallback to prompt-only",
					"provider", strings.TrimSpace(st.In.Provider),
					"model", strings.TrimSpace(st.In.Model),
					"error", err.Error(),
				)
				outMsg, err = chatModel.Generate(ctx, st.Messages, buildStrategistModelOptions(st.In, false)...)
			}
			if err != nil {
				return nil, err
			}
			if outMsg == nil {
				return nil, fmt.Errorf("empty llm response")
			}
			st.OutMsg = outMsg
			return st, nil
		}),
		compose.WithNodeName("strategist.llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *strategistChainState) (*schema.Message, error) {
			if st == nil || st.OutMsg == nil {
				return nil, fmt.Errorf("state is nil")
			}
			return st.OutMsg, nil
		}),
		compose.WithNodeName("strategist.finalize"),
	)

	return chain.Compile(ctx)
}

func formatStrategistMessages(ctx context.Context, in *wfmodel.StrategistInput) ([]*schema.Message, error) {
	tpl, err := defaultPromptRegistry.ChatTemplate(workflowprompt.PromptStrategistV1)
	if err != nil {
		return nil, err
	}
	vars := map[string]any{
		"topic":              strings.TrimSpace(in.Topic),
		"target_audience":    strings.TrimSpace(in.TargetAudience),
		"pain_point":         strings.TrimSpace(in.PainPoint),
		"desired_outcome":    strings.TrimSpace(in.DesiredOutcome),
		"format":             strings.TrimSpace(in.Format),
		"profile_type":       strings.TrimSpace(in.ProfileType),
		"brand_tone":         strings.TrimSpace(in.BrandTone),
		"proof_points_block": in.ProofPointsBlock,
		"research_block":     in.ResearchBlock,
		"knowledge_block":    in.KnowledgeBlock,
		"inspiration_block":  in.InspirationBlock,
	}
	return tpl.Format(ctx, vars)
}

func buildStrategistModelOptions(in *wfmodel.StrategistInput, enableSchema bool) []model.Option {
	opts := make([]model.Option, 0, 4)
	if in == nil {
		return opts
	}

	if in.Temperature != nil {
		opts = append(opts, model.WithTemperature(*in.Temperature))
	}
	if in.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*in.MaxTokens))
	}
	if strings.TrimSpace(in.Model) != "" {
		opts = append(opts, model.WithModel(strings.TrimSpace(in.Model)))
	}

	if enableSchema {
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   "narrative_strategy",
					"strict": false,
					"schema": strategistJSONSchema(),
				},
			},
		}))
	}

	return opts
}

func strategistJSONSchema() map[string]any {
	// 说明：此处 schema 以“最小可用”为目标，避免过度约束导致模型输出失败。
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"hook", "narrative_arc", "slide_count", "key_messages"},
		"properties": map[string]any{
			"hook":          map[string]any{"type": "string"},
			"narrative_arc": map[string]any{"type": "string"},
			"slide_count":   map[string]any{"type": "integer", "minimum": 5, "maximum": 7},
			"key_messages": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	}
}
