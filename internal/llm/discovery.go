package llm

import (
	"context"
	"strings"
	"time"
)

const (
	discoveryTimeout    = 10 * time.Second
	availabilityTimeout = 30 * time.Second
)

// Discovery finds conversational models on the local inference server.
type Discovery struct {
	Client *Client
}

// ConversationalModels lists served models, skipping embedding models
// (any id containing "embed", case-insensitively).
func (d Discovery) ConversationalModels(ctx context.Context) ([]ModelInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()

	models, err := d.Client.Models(ctx)
	if err != nil {
		return nil, err
	}
	var conversational []ModelInfo
	for _, m := range models {
		if strings.Contains(strings.ToLower(m.ID), "embed") {
			continue
		}
		conversational = append(conversational, m)
	}
	return conversational, nil
}

// Available probes a model with a tiny completion to check it responds.
func (d Discovery) Available(ctx context.Context, modelID string) bool {
	ctx, cancel := context.WithTimeout(ctx, availabilityTimeout)
	defer cancel()

	_, err := d.Client.Chat(ctx, ChatRequest{
		Model:       modelID,
		Messages:    []Message{{Role: "user", Content: "test"}},
		MaxTokens:   5,
		Temperature: 0.1,
	})
	return err == nil
}
