package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	domain "github.com/planscanhq/planscan/internal/domain/analyses"
	"github.com/planscanhq/planscan/internal/domain/apperrors"
	"github.com/planscanhq/planscan/internal/infra/ai/prompt"
)

const maxTokens = 4096

// Client implements the Extractor port against the OpenAI chat API.
type Client struct {
	*openai.Client
	Model string
}

func NewClient(apiKey, model string) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model}
}

// imageTypes the model accepts as image attachments. PDFs go by URL in the
// user prompt instead.
var imageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// Extract submits the document plus the fixed schema prompt and decodes the
// structured report. Unsupported media fails fast before any model call.
func (c *Client) Extract(ctx context.Context, documentURL, contentType string) (*domain.Report, error) {
	messages, err := buildMessages(documentURL, contentType)
	if err != nil {
		return nil, err
	}

	model := c.Model
	if model == "" {
		model = "gpt-4o-2024-08-06"
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: messages,
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	return decodeReport(resp.Choices[0].Message.Content)
}

// buildMessages classifies the media kind and shapes the request: images go
// as vision attachments, PDFs as a URL in the user prompt.
func buildMessages(documentURL, contentType string) ([]openai.ChatCompletionMessage, error) {
	system := openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: prompt.GetSystemPrompt(),
	}

	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}

	switch {
	case imageTypes[ct]:
		return []openai.ChatCompletionMessage{system, {
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt.GetImageUserPrompt()},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: documentURL}},
			},
		}}, nil
	case ct == "application/pdf":
		return []openai.ChatCompletionMessage{system, {
			Role:    openai.ChatMessageRoleUser,
			Content: prompt.GetPDFUserPrompt(documentURL),
		}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedContentType, contentType)
	}
}

// decodeReport parses the model output into the fixed schema, tolerating
// stray code fences some models still emit.
func decodeReport(content string) (*domain.Report, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var report domain.Report
	if err := json.Unmarshal([]byte(content), &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}
