// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pdiddy/medai-miner/internal/metrics"
	"github.com/pdiddy/medai-miner/pkg/types"
)

// DefaultModel is used when neither the request nor the config names one.
const DefaultModel = "claude-haiku-4-5-20251001"

// AnthropicClient implements Completer over the Anthropic Messages API.
type AnthropicClient struct {
	client sdk.Client
	model  string
}

// NewAnthropicClient builds a client from cfg. The SDK's own retries are
// disabled; callers retry transient failures with Retry so that backoff is
// visible to the run and its tests.
func NewAnthropicClient(cfg types.LLMConfig) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, eris.New("llm: missing API key")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &AnthropicClient{client: sdk.NewClient(opts...), model: model}, nil
}

// Complete sends req.Prompt as a single user message and returns the
// concatenated text blocks of the reply.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (Completion, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	kind := req.Kind
	if kind == "" {
		kind = "completion"
	}

	start := time.Now()
	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	})
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			metrics.LLMRequest(kind, "cancelled", elapsed)
			return Completion{}, eris.Wrap(err, "llm: create message")
		}
		apiErr := classifyError(err)
		metrics.LLMRequest(kind, string(apiErr.Kind), elapsed)
		zap.L().Warn("llm: request failed",
			zap.String("kind", kind),
			zap.String("model", model),
			zap.String("error_kind", string(apiErr.Kind)),
			zap.Int("status", apiErr.StatusCode),
			zap.Error(err),
		)
		return Completion{}, apiErr
	}

	out := fromSDKMessage(msg)
	if strings.TrimSpace(out.Text) == "" {
		metrics.LLMRequest(kind, string(KindEmpty), elapsed)
		return out, &APIError{Kind: KindEmpty, Err: eris.Errorf("no text in response (stop reason %q)", out.StopReason)}
	}

	metrics.LLMRequest(kind, "ok", elapsed)
	zap.L().Debug("llm: completion",
		zap.String("kind", kind),
		zap.String("model", out.Model),
		zap.Int64("input_tokens", out.InputTokens),
		zap.Int64("output_tokens", out.OutputTokens),
		zap.Duration("elapsed", elapsed),
	)
	return out, nil
}

// classifyError maps an SDK or transport error onto an ErrorKind. Errors
// that never reached the API (DNS, resets, timeouts) are transient.
func classifyError(err error) *APIError {
	wrapped := eris.Wrap(err, "llm: create message")

	var sdkErr *sdk.Error
	if !errors.As(err, &sdkErr) {
		return &APIError{Kind: KindTransient, Err: wrapped}
	}

	status := sdkErr.StatusCode
	kind := KindInvalid
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindAuth
	case isTransientStatus(status):
		kind = KindTransient
	}
	return &APIError{Kind: kind, StatusCode: status, Err: wrapped}
}

// isTransientStatus reports whether an HTTP status is a retryable
// server-side or rate-limit condition. 529 is the API's overloaded status.
func isTransientStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooManyRequests:
		return true
	}
	return status >= 500
}

func fromSDKMessage(msg *sdk.Message) Completion {
	var text strings.Builder
	for _, b := range msg.Content {
		if b.Type == "text" {
			text.WriteString(b.Text)
		}
	}
	return Completion{
		Text:         text.String(),
		Model:        string(msg.Model),
		StopReason:   string(msg.StopReason),
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}
}
