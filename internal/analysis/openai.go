package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"golang.org/x/time/rate"

	"github.com/snacklabs/feedback-insights/internal/config"
)

// JudgmentProvider produces a raw structured judgment for one prompt.
// Implementations must be safe for concurrent use.
type JudgmentProvider interface {
	Judge(ctx context.Context, prompt string) (JudgmentResponse, error)
}

// OpenAIClient implements JudgmentProvider against the OpenAI Responses API
// with strict structured outputs. A shared rate limiter paces requests so
// concurrent batch workers stay inside the configured requests-per-minute.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	schema  map[string]any
}

// NewOpenAIClient builds the client from configuration. The judgment schema
// is generated once up front so a broken schema fails at startup rather than
// on the first request.
func NewOpenAIClient(cfg config.OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}

	schema, err := generateSchema[JudgmentResponse]()
	if err != nil {
		return nil, fmt.Errorf("generating judgment schema: %w", err)
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	burst := cfg.MaxConcurrency
	if burst < 1 {
		burst = 1
	}

	return &OpenAIClient{
		client:  &client,
		model:   cfg.Model,
		timeout: cfg.RequestTimeout,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
		schema:  schema,
	}, nil
}

// Judge sends one comment prompt and decodes the structured judgment.
func (c *OpenAIClient) Judge(ctx context.Context, prompt string) (JudgmentResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return JudgmentResponse{}, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "CommentJudgment",
			Schema:      c.schema,
			Strict:      openai.Bool(true),
			Description: openai.String("Feedback comment judgment JSON"),
			Type:        "json_schema",
		},
	}

	params := responses.ResponseNewParams{
		Model:           c.model,
		MaxOutputTokens: openai.Int(600),
		Instructions:    openai.String(analysisInstructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}

	resp, err := c.callWithRetry(ctx, params)
	if err != nil {
		return JudgmentResponse{}, err
	}

	var out JudgmentResponse
	if err := decodeModelJSON(resp.OutputText(), &out); err != nil {
		return JudgmentResponse{}, fmt.Errorf("unmarshal judgment: %w", err)
	}
	return out, nil
}

// callWithRetry retries transient API failures. Waits are short because the
// call sits on an interactive request path, not a batch job.
func (c *OpenAIClient) callWithRetry(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	const maxRetries = 3
	rateLimitWaits := []time.Duration{2 * time.Second, 5 * time.Second}
	serverErrorWaits := []time.Duration{1 * time.Second, 3 * time.Second}

	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := c.client.Responses.New(ctx, params)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if isRateLimitError(err) && attempt < maxRetries-1 {
				time.Sleep(rateLimitWaits[attempt])
				continue
			}
			if isServerError(err) && attempt < maxRetries-1 {
				time.Sleep(serverErrorWaits[attempt])
				continue
			}
			return nil, err
		}
		return resp, nil
	}
	return nil, fmt.Errorf("failed after %d attempts due to OpenAI API issues", maxRetries)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "429") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "too many requests")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "500") ||
		strings.Contains(s, "502") ||
		strings.Contains(s, "503") ||
		strings.Contains(s, "internal server error") ||
		strings.Contains(s, "bad gateway") ||
		strings.Contains(s, "service unavailable")
}
