package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const extractTimeout = 45 * time.Second

// generator is the part of *genai.GenerativeModel the extractor calls.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Gemini extracts receipts with a Gemini vision model.
type Gemini struct {
	client *genai.Client
	model  generator
}

var _ Extractor = (*Gemini)(nil)

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	m := client.GenerativeModel(model)
	m.SetTemperature(0)
	m.ResponseMIMEType = "application/json"
	slog.InfoContext(ctx, "Gemini OCR initialized", "model", model)
	return &Gemini{client: client, model: m}, nil
}

// Extract sends the screenshot with the receipt prompt and parses the answer.
func (g *Gemini) Extract(ctx context.Context, mime string, image []byte) (Receipt, error) {
	if err := CheckImage(mime, image); err != nil {
		return Receipt{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	resp, err := g.model.GenerateContent(ctx,
		genai.Blob{MIMEType: mime, Data: image},
		genai.Text(Prompt),
	)
	if err != nil {
		return Receipt{}, fmt.Errorf("gemini generate: %w", err)
	}
	text, ok := firstText(resp)
	if !ok {
		return Receipt{}, ErrNoResult
	}
	return Parse(text)
}

func firstText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil {
		return "", false
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t), true
			}
		}
	}
	return "", false
}

func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}
