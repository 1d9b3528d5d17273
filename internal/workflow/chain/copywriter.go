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

// CopywriterChain 逐张幻灯片文案生成链
type CopywriterChain struct {
	factory workflowport.ChatModelFactory

	chainOnce sync.Once
	chain     compose.Runnable[*wfmodel.CopywriterInput, *schema.Message]
	chainErr  error
}

func NewCopywriterChain(factory workflowport.ChatModelFactory) *CopywriterChain {
	return &CopywriterChain{factory: factory}
}

func (c *CopywriterChain) Invoke(ctx context.Context, in *wfmodel.CopywriterInput) (*schema.Message, error) {
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

type copywriterChainState struct {
	In       *wfmodel.CopywriterInput
	Messages []*schema.Message
	OutMsg   *schema.Message
}

func (c *CopywriterChain) getChain() (compose.Runnable[*wfmodel.CopywriterInput, *schema.Message], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = c.buildChain(context.Background())
	})
	return c.chain, c.chainErr
}

func (c *CopywriterChain) buildChain(ctx context.Context) (compose.Runnable[*wfmodel.CopywriterInput, *schema.Message], error) {
	chain := compose.NewChain[*wfmodel.CopywriterInput, *schema.Message]()

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, in *wfmodel.CopywriterInput) (*copywriterChainState, error) {
			if in == nil {
				return nil, fmt.Errorf("input is nil")
			}
			return &copywriterChainState{In: in}, nil
		}),
		compose.WithNodeName("copywriter.init"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *copywriterChainState) (*copywriterChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}
			msgs, err := formatCopywriterMessages(ctx, st.In)
			if err != nil {
				return nil, err
			}
			st.Messages = msgs
			return st, nil
		}),
		compose.WithNodeName("copywriter.template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *copywriterChainState) (*copywriterChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}
			if c.factory == nil {
				return nil, fmt.Errorf("llm factory not configured")
			}

			ctx = llmctx.WithAgentProvider(ctx, "copywriter", strings.TrimSpace(st.In.Provider))
			chatModel, err := c.factory.Get(ctx, strings.TrimSpace(st.In.Provider))
			if err != nil {
				return nil, err
			}

			outMsg, err := chatModel.Generate(ctx, st.Messages, buildCopywriterModelOptions(st.In, true)...)
			if err != nil && wfnode.IsResponseFormatUnsupportedError(err) {
				logger.Warn(ctx, "llm json_schema not supported, fallback to prompt-only",
					"provider", strings.TrimSpace(st.In.Provider),
					"model", strings.TrimSpace(st.In.Model),
					"error", err.Error(),
				)
				outMsg, err = chatModel.Generate(ctx, st.Messages, buildCopywriterModelOptions(st.In, false)...)
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
		compose.WithNodeName("copywriter.llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *copywriterChainState) (*schema.Message, error) {
			if st == nil || st.OutMsg == nil {
				return nil, fmt.Errorf("state is nil")
			}
			return st.OutMsg, nil
		}),
		compose.WithNodeName("copywriter.finalize"),
	)

	return chain.Compile(ctx)
}

func formatCopywriterMessages(ctx context.Context, in *wfmodel.CopywriterInput) ([]*schema.Message, error) {
	tpl, err := defaultPromptRegistry.ChatTemplate(workflowprompt.PromptCopywriterV1)
	if err != nil {
		return nil, err
	}
	vars := map[string]any{
		"topic":              strings.TrimSpace(in.Topic),
		"target_audience":    strings.TrimSpace(in.TargetAudience),
		"pain_point":         strings.TrimSpace(in.PainPoint),
		"cta_action":         strings.TrimSpace(in.CTAAction),
		"format":             strings.TrimSpace(in.Format),
		"profile_type":       strings.TrimSpace(in.ProfileType),
		"brand_tone":         strings.TrimSpace(in.BrandTone),
		"hook":               strings.TrimSpace(in.Hook),
		"narrative_arc":      strings.TrimSpace(in.NarrativeArc),
		"slide_count":        in.SlideCount,
		"key_messages":       strings.Join(in.KeyMessages, "；"),
		"proof_points_block": in.ProofPointsBlock,
		"knowledge_block":    in.KnowledgeBlock,
		"issues_block":       in.IssuesBlock,
	}
	return tpl.Format(ctx, vars)
}

func buildCopywriterModelOptions(in *wfmodel.CopywriterInput, enableSchema bool) []model.Option {
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
					"name":   "carousel_copy",
					"strict": false,
					"schema": copywriterJSONSchema(),
				},
			},
		}))
	}

	return opts
}

func copywriterJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"caption", "slides"},
		"properties": map[string]any{
			"caption": map[string]any{"type": "string"},
			"slides": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []any{"type", "headline", "body", "visual_description"},
					"properties": map[string]any{
						"type":               map[string]any{"type": "string", "enum": []any{"hook", "content", "cta"}},
						"headline":           map[string]any{"type": "string"},
						"body":               map[string]any{"type": "string"},
						"visual_description": map[string]any{"type": "string"},
					},
				},
			},
		},
	}
}
