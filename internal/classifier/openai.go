// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package classifier

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no OpenAI model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIConfig configures [NewOpenAI].
type OpenAIConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint, for compatible servers.
	BaseURL string
	// HTTPClient is an optional HTTP client to use for requests.
	HTTPClient *http.Client
}

// NewOpenAI returns a Gateway backed by the OpenAI chat completions API.
func NewOpenAI(c OpenAIConfig) *Gateway {
	cfg := openai.DefaultConfig(c.APIKey)
	if c.BaseURL != "" {
		cfg.BaseURL = c.BaseURL
	}
	if c.HTTPClient != nil {
		cfg.HTTPClient = c.HTTPClient
	}
	model := c.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &Gateway{gen: &openaiGenerator{client: openai.NewClientWithConfig(cfg), model: model}}
}

type openaiGenerator struct {
	client *openai.Client
	model  string
}

func (g *openaiGenerator) generate(ctx context.Context, p prompt) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     g.model,
		MaxTokens: p.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.system},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: p.text},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    "data:image/" + imageFormat(p.image) + ";base64," + base64.StdEncoding.EncodeToString(p.image),
							Detail: openai.ImageURLDetailLow,
						},
					},
				},
			},
		},
	}
	if p.temperature != nil {
		req.Temperature = *p.temperature
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *openaiGenerator) close() error { return nil }
