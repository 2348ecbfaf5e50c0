package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/sashabaranov/go-openai"
)

const defaultPrompt = "\n\nWrite a neutral two sentence teaser for the news article above. Do not add facts that are not in the text."

// OpenAISummarizer writes article teasers with the chat completion API.
// Without an API key it is disabled and returns empty summaries.
type OpenAISummarizer struct {
	client  *openai.Client
	prompt  string
	enabled bool
	// Requests are serialized to stay inside the account rate limit.
	mu sync.Mutex
}

func NewOpenAISummarizer(apiKey string, prompt string) *OpenAISummarizer {
	if prompt == "" {
		prompt = defaultPrompt
	}

	s := &OpenAISummarizer{
		client: openai.NewClient(apiKey),
		prompt: prompt,
	}

	log.Info("openai summarizer", "enabled", apiKey != "")

	if apiKey != "" {
		s.enabled = true
	}

	return s
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || strings.TrimSpace(text) == "" {
		return "", nil
	}

	request := openai.ChatCompletionRequest{
		Model: openai.GPT3Dot5Turbo,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("%s%s", text, s.prompt),
			},
		},
		MaxTokens:   128,
		Temperature: 0.3,
		TopP:        1,
	}

	resp, err := s.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	rawSummary := strings.TrimSpace(resp.Choices[0].Message.Content)
	if strings.HasSuffix(rawSummary, ".") || !strings.Contains(rawSummary, ".") {
		return rawSummary, nil
	}

	// Drop the trailing unfinished sentence.
	sentences := strings.Split(rawSummary, ".")
	return strings.Join(sentences[:len(sentences)-1], ".") + ".", nil
}
