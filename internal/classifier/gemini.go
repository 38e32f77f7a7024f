// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no Gemini model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// NewGemini returns a Gateway backed by the Gemini API.
func NewGemini(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*Gateway, error) {
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("classifier: creating Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gateway{gen: &geminiGenerator{client: client, model: model}}, nil
}

type geminiGenerator struct {
	client *genai.Client
	model  string
}

func (g *geminiGenerator) generate(ctx context.Context, p prompt) (string, error) {
	m := g.client.GenerativeModel(g.model)
	m.SystemInstruction = genai.NewUserContent(genai.Text(p.system))
	m.SetMaxOutputTokens(int32(p.maxTokens))
	if p.temperature != nil {
		m.SetTemperature(*p.temperature)
	}

	resp, err := m.GenerateContent(ctx, genai.ImageData(imageFormat(p.image), p.image), genai.Text(p.text))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		// The first candidate with content is the answer.
		if sb.Len() > 0 {
			break
		}
	}
	return sb.String(), nil
}

func (g *geminiGenerator) close() error { return g.client.Close() }
