package humanizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ErrUpstream wraps any failure talking to the completion API. Credit must not
// be debited when it is returned.
var ErrUpstream = errors.New("humanizer upstream unavailable")

const (
	systemPrompt = `You are a text humanizer.
You humanize AI generated text.
The text must appear like humanly written.
THE INPUT AND THE OUTPUT TEXT SHOULD HAVE THE SAME FORMAT.
THE HEADINGS AND THE BULLETS IN THE INPUT SHOULD REMAIN IN PLACE`

	stylePrompt = `THE LANGUAGE OF THE INPUT AND THE OUTPUT MUST BE SAME. THE SENTENCES SHOULD NOT BE SHORT LENGTH - THEY SHOULD BE SAME AS IN THE INPUT. ALSO THE PARAGRAPHS SHOULD NOT BE SHORT EITHER - PARAGRAPHS MUST HAVE THE SAME LENGTH`
)

// Config holds completion API configuration
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// Client wraps the OpenAI completion API behind the single humanize operation
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

// NewClient creates a humanizer client
func NewClient(cfg Config) *Client {
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.87
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		api:         openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		temperature: temperature,
		timeout:     timeout,
	}
}

// Humanize rewrites the text so it reads as human-written, preserving the
// input's headings, bullets, and paragraph lengths.
func (c *Client) Humanize(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: stylePrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Humanize the text. Keep the output format i.e. the bullets and the headings as it is and don't use the list of words that are not permissible. \nTEXT: " + text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion response", ErrUpstream)
	}

	return resp.Choices[0].Message.Content, nil
}

// CountWords returns the number of whitespace-separated words in s
func CountWords(s string) int {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0
	}
	return len(strings.Fields(trimmed))
}
