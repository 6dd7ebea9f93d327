// Package vlm defines the vision-language captioning provider boundary
// used by image and PDF-page engines, implemented against OpenAI's
// chat-completions vision input (GPT-4o family).
package vlm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lfnovo/content-core/internal/ccerr"
	"github.com/lfnovo/content-core/internal/platform/logger"
)

// Provider captions or transcribes the visual content of one image.
type Provider interface {
	Name() string
	IsAvailable(ctx context.Context) bool
	Describe(ctx context.Context, image []byte, mimeType string, prompt string) (string, error)
}

type openaiVision struct {
	log    *logger.Logger
	client *openai.Client
	model  string
}

// NewOpenAIVision builds a captioning provider around model (defaults to
// "gpt-4o" when empty).
func NewOpenAIVision(apiKey string, log *logger.Logger, model string) Provider {
	if log == nil {
		log = logger.Nop()
	}
	if model == "" {
		model = "gpt-4o"
	}
	return &openaiVision{log: log.With("provider", "openai_vision"), client: openai.NewClient(apiKey), model: model}
}

func (o *openaiVision) Name() string { return "openai_vision" }

func (o *openaiVision) IsAvailable(ctx context.Context) bool { return o.client != nil }

const defaultPrompt = "Describe the content of this image in detail, transcribing any visible text verbatim."

func (o *openaiVision) Describe(ctx context.Context, image []byte, mimeType string, prompt string) (string, error) {
	if len(image) == 0 {
		return "", ccerr.New(ccerr.ParseError, "empty image payload")
	}
	if prompt == "" {
		prompt = defaultPrompt
	}
	if mimeType == "" {
		mimeType = "image/png"
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
				},
			},
		},
	})
	if err != nil {
		return "", classifyOpenAI(err)
	}
	if len(resp.Choices) == 0 {
		return "", ccerr.New(ccerr.ParseError, "vision completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func classifyOpenAI(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
			return ccerr.Wrap(ccerr.AuthError, "openai_vision", err, "vision completion")
		case apiErr.HTTPStatusCode == 429:
			return ccerr.Wrap(ccerr.RateLimitError, "openai_vision", err, "vision completion")
		case apiErr.HTTPStatusCode >= 500:
			return ccerr.Wrap(ccerr.NetworkError, "openai_vision", err, "vision completion")
		}
	}
	return ccerr.Wrap(ccerr.ParseError, "openai_vision", err, "vision completion")
}
