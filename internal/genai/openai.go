package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/draftforge/longform/internal/webtool"
)

// Compile-time interface checks.
var (
	_ ContentGenerationService = (*OpenAIGenerator)(nil)
	_ ImageCreationService     = (*OpenAIImageCreator)(nil)
)

const (
	// DefaultChatModel is used when no model is configured.
	DefaultChatModel = "gpt-4o"

	// DefaultImageModel is used for illustration creation.
	DefaultImageModel = openai.ImageModelDallE3
)

// ErrAPIKeyNotSet is returned when OPENAI_API_KEY is missing.
var ErrAPIKeyNotSet = errors.New("genai: OPENAI_API_KEY not set")

// maxToolRounds caps how many tool-call exchanges one Generate runs before
// the model is forced to answer.
const maxToolRounds = 4

// OpenAIGenerator implements ContentGenerationService on the OpenAI chat
// completions API. When a search service is attached, a web_search function
// tool is offered to the model and executed locally.
type OpenAIGenerator struct {
	client openai.Client
	model  string
	search webtool.SearchService
}

// GeneratorOption configures an OpenAIGenerator.
type GeneratorOption func(*OpenAIGenerator)

// WithSearchTool attaches the search backend that serves the model's
// web_search tool calls.
func WithSearchTool(search webtool.SearchService) GeneratorOption {
	return func(g *OpenAIGenerator) { g.search = search }
}

// NewOpenAIGenerator builds a generator reading the API key from the
// environment.
func NewOpenAIGenerator(model string, opts ...GeneratorOption) (*OpenAIGenerator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if model == "" {
		model = DefaultChatModel
	}
	g := &OpenAIGenerator{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate runs a chat completion, serving web_search tool calls until the
// model produces its answer. Rate limits, timeouts and 5xx answers come
// back wrapped in TransientError so the caller's retry policy can
// distinguish them from structural failures.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, toolsEnabled bool) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if toolsEnabled && g.search != nil {
		params.Tools = []openai.ChatCompletionToolUnionParam{webSearchTool()}
	}

	for round := 0; ; round++ {
		if round >= maxToolRounds {
			// Out of tool budget: withdraw the tools so the model
			// has to answer with what it gathered.
			params.Tools = nil
		}

		completion, err := g.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", classify(err)
		}
		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("genai: completion returned no choices")
		}

		msg := completion.Choices[0].Message
		if len(msg.ToolCalls) == 0 || len(params.Tools) == 0 {
			return msg.Content, nil
		}

		params.Messages = append(params.Messages, msg.ToParam())
		for _, call := range msg.ToolCalls {
			params.Messages = append(params.Messages,
				openai.ToolMessage(g.serveToolCall(ctx, call.Function.Name, call.Function.Arguments), call.ID))
		}
	}
}

// webSearchTool declares the function tool served by serveToolCall.
func webSearchTool() openai.ChatCompletionToolUnionParam {
	return openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
		Name:        "web_search",
		Description: openai.String("Search the web for current facts and statistics"),
		Parameters: shared.FunctionParameters{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query",
				},
			},
			"required": []string{"query"},
		},
	})
}

// serveToolCall executes one model tool call and returns the JSON payload
// fed back into the conversation. Failures are reported to the model rather
// than aborting the completion.
func (g *OpenAIGenerator) serveToolCall(ctx context.Context, name, arguments string) string {
	if name != "web_search" {
		return `{"error":"unknown tool"}`
	}

	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil || args.Query == "" {
		return `{"error":"invalid arguments, expected {\"query\":...}"}`
	}

	results, err := g.search.Search(ctx, args.Query)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, "search failed: "+err.Error())
	}
	if len(results) > 5 {
		results = results[:5]
	}

	payload, err := json.Marshal(results)
	if err != nil {
		return `{"error":"could not encode results"}`
	}
	return string(payload)
}

// OpenAIImageCreator implements ImageCreationService on the OpenAI images
// API.
type OpenAIImageCreator struct {
	client openai.Client
	model  openai.ImageModel
}

// NewOpenAIImageCreator builds an image creator reading the API key from the
// environment.
func NewOpenAIImageCreator() (*OpenAIImageCreator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	return &OpenAIImageCreator{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  DefaultImageModel,
	}, nil
}

// Create generates one illustration and returns its hosted URL.
func (c *OpenAIImageCreator) Create(ctx context.Context, prompt string) (ImageRef, error) {
	resp, err := c.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Model:  c.model,
		Prompt: prompt,
		N:      openai.Int(1),
	})
	if err != nil {
		return ImageRef{}, classify(err)
	}
	if len(resp.Data) == 0 {
		return ImageRef{}, fmt.Errorf("genai: image response contained no data")
	}
	return ImageRef{URL: resp.Data[0].URL, AltText: prompt}, nil
}

// classify wraps retryable backend failures in TransientError and passes
// everything else through.
func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 || apiErr.StatusCode >= 500 {
			return &TransientError{Err: err}
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransientError{Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Err: err}
	}
	return err
}
