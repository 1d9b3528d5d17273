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

// ReviewerChain 质量评审链
type ReviewerChain struct {
	factory workflowport.ChatModelFactory

	chainOnce sync.Once
	chain     compose.Runnable[*wfmodel.ReviewerInput, *schema.Message]
	chainErr  error
}

func NewReviewerChain(factory workflowport.ChatModelFactory) *ReviewerChain {
	return &ReviewerChain{factory: factory}
}

func (c *ReviewerChain) Invoke(ctx context.Context, in *wfmodel.ReviewerInput) (*schema.Message, error) {
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

type reviewerChainState struct {
	In       *wfmodel.ReviewerInput
	Messages []*schema.Message
	OutMsg   *schema.Message
}

func (c *ReviewerChain) getChain() (compose.Runnable[*wfmodel.ReviewerInput, *schema.Message], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = c.buildChain(context.Background())
	})
	return c.chain, c.chainErr
}

func (c *ReviewerChain) buildChain(ctx context.Context) (compose.Runnable[*wfmodel.ReviewerInput, *schema.Message], error) {
	chain := compose.NewChain[*wfmodel.ReviewerInput, *schema.Message]()

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, in *wfmodel.ReviewerInput) (*reviewerChainState, error) {
			if in == nil {
				return nil, fmt.Errorf("input is nil")
			}
			return &reviewerChainState{In: in}, nil
		}),
		compose.WithNodeName("reviewer.init"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *reviewerChainState) (*reviewerChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}
			msgs, err := formatReviewerMessages(ctx, st.In)
			if err != nil {
				return nil, err
			}
			st.Messages = msgs
			return st, nil
		}),
		compose.WithNodeName("reviewer.template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *reviewerChainState) (*reviewerChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}
			if c.factory == nil {
				return nil, fmt.Errorf("llm factory not configured")
			}

			ctx = llmctx.WithAgentProvider(ctx, "reviewer", strings.TrimSpace(st.In.Provider))
			chatModel, err := c.factory.Get(ctx, strings.TrimSpace(st.In.Provider))
			if err != nil {
				return nil, err
			}

			outMsg, err := chatModel.Generate(ctx, st.Messages, buildReviewerModelOptions(st.In, true)...)
			if err != nil && wfnode.IsResponseFormatUnsupportedError(err) {
				logger.Warn(ctx, "llm json_schema not supported, fallback to prompt-only",
					"provider", strings.TrimSpace(st.In.Provider),
					"model", strings.TrimSpace(st.In.Model),
					"error", err.Error(),
				)
				outMsg, err = chatModel.Generate(ctx, st.Messages, buildReviewerModelOptions(st.In, false)...)
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
		compose.WithNodeName("reviewer.llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *reviewerChainState) (*schema.Message, error) {
			if st == nil || st.OutMsg == nil {
				return nil, fmt.Errorf("state is nil")
			}
			return st.OutMsg, nil
		}),
		compose.WithNodeName("reviewer.finalize"),
	)

	return chain.Compile(ctx)
}

func formatReviewerMessages(ctx context.Context, in *wfmodel.ReviewerInput) ([]*schema.Message, error) {
	tpl, err := defaultPromptRegistry.ChatTemplate(workflowprompt.PromptReviewerV1)
	if err != nil {
		return nil, err
	}
	vars := map[string]any{
		"topic":           strings.TrimSpace(in.Topic),
		"target_audience": strings.TrimSpace(in.TargetAudience),
		"pain_point":      strings.TrimSpace(in.PainPoint),
		"brand_tone":      strings.TrimSpace(in.BrandTone),
		"copy_json":       in.CopyJSON,
	}
	return tpl.Format(ctx, vars)
}

func buildReviewerModelOptions(in *wfmodel.ReviewerInput, enableSchema bool) []model.Option {
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
					"name":   "quality_review",
					"strict": false,
					"schema": reviewerJSONSchema(),
				},
			},
		}))
	}

	return opts
}

func reviewerJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"overall_score", "feedback", "needs_regeneration"},
		"properties": map[string]any{
			"overall_score":      map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
			"feedback":           map[string]any{"type": "string"},
			"needs_regeneration": map[string]any{"type": "boolean"},
			"issues":             map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"strengths":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	}
}
