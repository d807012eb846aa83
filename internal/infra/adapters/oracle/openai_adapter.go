package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"rental-booking-bot/internal/domain/ports/adapter"
	"rental-booking-bot/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.Oracle = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements the oracle port using the Chat Completions API.
type OpenAIAdapter struct {
	apiKey string
	base   string // e.g., https://api.openai.com/v1
	model  string
	client *http.Client
}

func NewOpenAIAdapter(apiKey, model string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIAdapter{
		apiKey: apiKey,
		base:   "https://api.openai.com/v1",
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (o *OpenAIAdapter) Complete(ctx context.Context, systemPrompt string, history []adapter.Message, userText string) (string, error) {
	messages := make([]adapter.Message, 0, len(history)+2)
	messages = append(messages, adapter.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, adapter.Message{Role: "user", Content: userText})

	reqBody := struct {
		Model    string            `json:"model"`
		Messages []adapter.Message `json:"messages"`
	}{Model: o.model, Messages: messages}

	b, _ := json.Marshal(reqBody)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/chat/completions", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	start := time.Now()
	resp, err := o.client.Do(req)
	metrics.OracleLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OracleCalls.WithLabelValues("error").Inc()
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		metrics.OracleCalls.WithLabelValues("error").Inc()
		return "", fmt.Errorf("openai http %d", resp.StatusCode)
	}

	var payload struct {
		Choices []struct {
			Message adapter.Message `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.OracleCalls.WithLabelValues("error").Inc()
		return "", err
	}
	for _, c := range payload.Choices {
		if c.Message.Content != "" {
			metrics.OracleCalls.WithLabelValues("ok").Inc()
			return c.Message.Content, nil
		}
	}
	metrics.OracleCalls.WithLabelValues("empty").Inc()
	return "", errors.New("no choice content")
}
