package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/casafind/casafind/internal/domain"
	"github.com/casafind/casafind/internal/domain/criteria"
	"github.com/casafind/casafind/internal/metrics"
)

const extractFunctionName = "extract_search_criteria"

const extractSystemPrompt = `You extract structured real-estate search criteria from a user query.
Call the ` + extractFunctionName + ` function with every constraint the user stated explicitly.
Never invent constraints. Put intent you cannot map to a structured field
(style, light, view, vibe, proximity wishes) verbatim into residual_text.
Normalize location names to lowercase.`

// extractSchema describes the function arguments. Field names match the
// criteria JSON tags, so the arguments decode directly into criteria.Criteria.
var extractSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "city": {"type": "string", "description": "City name, lowercase"},
    "districts": {"type": "array", "items": {"type": "string"}, "description": "District names, lowercase; multiple when the user lists alternatives"},
    "neighbourhood": {"type": "string"},
    "street": {"type": "string"},
    "transaction": {"type": "string", "enum": ["sale", "rent"]},
    "market": {"type": "string", "enum": ["primary", "secondary"]},
    "price_min": {"type": "number"},
    "price_max": {"type": "number"},
    "rooms": {"type": "integer", "description": "Exact number of rooms requested"},
    "area_min": {"type": "number", "description": "Minimum area in square meters"},
    "floor": {"type": "integer"},
    "build_year_min": {"type": "integer"},
    "build_year_max": {"type": "integer"},
    "amenities": {"type": "array", "items": {"type": "string", "enum": ["garage", "parking", "balcony", "elevator", "air_conditioning", "furnished", "pets_allowed"]}},
    "residual_text": {"type": "string", "description": "Intent not captured by any structured field"}
  }
}`)

// Extractor turns a free-text query into structured criteria via an
// OpenAI-compatible chat completion with forced function calling.
type Extractor struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// ExtractorConfig holds the extraction provider settings.
type ExtractorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewExtractor creates an OpenAI-compatible criteria extractor.
func NewExtractor(cfg *ExtractorConfig) *Extractor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Extractor{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Extract implements usecase/extract.Provider. All failures wrap
// domain.ErrExtractionUnavailable so the caller can fall back instead of
// failing the search.
func (e *Extractor) Extract(ctx context.Context, query string) (criteria.Criteria, error) {
	req := openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		Tools: []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        extractFunctionName,
				Description: "Extract structured real-estate search criteria from the query",
				Parameters:  extractSchema,
			},
		}},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: extractFunctionName},
		},
		Temperature: 0,
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		metrics.ExtractionRequestsTotal.WithLabelValues("error").Inc()
		return criteria.Criteria{}, fmt.Errorf("chat completion: %v: %w", err, domain.ErrExtractionUnavailable)
	}

	args, err := extractArguments(&resp)
	if err != nil {
		metrics.ExtractionRequestsTotal.WithLabelValues("error").Inc()
		return criteria.Criteria{}, err
	}

	parsed, err := decodeCriteria(args)
	if err != nil {
		metrics.ExtractionRequestsTotal.WithLabelValues("error").Inc()
		e.logger.Warn("unparseable extraction arguments", zap.Error(err))
		return criteria.Criteria{}, err
	}

	metrics.ExtractionRequestsTotal.WithLabelValues("success").Inc()
	return parsed, nil
}

// extractArguments pulls the function-call arguments out of the completion.
func extractArguments(resp *openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response: %w", domain.ErrExtractionUnavailable)
	}

	msg := resp.Choices[0].Message
	for _, call := range msg.ToolCalls {
		if call.Function.Name == extractFunctionName {
			return call.Function.Arguments, nil
		}
	}
	// Some providers answer via the legacy function_call field.
	if msg.FunctionCall != nil && msg.FunctionCall.Name == extractFunctionName {
		return msg.FunctionCall.Arguments, nil
	}

	return "", fmt.Errorf("completion carried no %s call: %w", extractFunctionName, domain.ErrExtractionUnavailable)
}

// decodeCriteria parses function-call arguments, repairing the JSON first:
// models regularly emit trailing commas or unquoted keys.
func decodeCriteria(args string) (criteria.Criteria, error) {
	repaired, err := jsonrepair.JSONRepair(args)
	if err != nil {
		repaired = args
	}

	var c criteria.Criteria
	if err := json.Unmarshal([]byte(repaired), &c); err != nil {
		return criteria.Criteria{}, fmt.Errorf("decode criteria: %v: %w", err, domain.ErrExtractionUnavailable)
	}
	return c, nil
}
