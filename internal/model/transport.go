package model

import (
	"context"
	"fmt"
	"slices"

	"google.golang.org/genai"
)

// transport sends one conversational turn to the remote model and returns
// its text reply. The production implementation talks to the Gemini API;
// tests substitute a fake.
type transport interface {
	generate(ctx context.Context, history []*genai.Content, parts []*genai.Part) (string, error)
}

type geminiTransport struct {
	client *genai.Client
	model  string
}

func newGeminiTransport(ctx context.Context, apiKey, model string) (*geminiTransport, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &geminiTransport{client: client, model: model}, nil
}

func (t *geminiTransport) generate(ctx context.Context, history []*genai.Content, parts []*genai.Part) (string, error) {
	contents := slices.Clone(history)
	contents = append(contents, &genai.Content{
		Role:  string(genai.RoleUser),
		Parts: parts,
	})

	resp, err := t.client.Models.GenerateContent(ctx, t.model, contents, nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
