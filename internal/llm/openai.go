package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type openaiCompleter struct {
	client *openai.Client
	model  string
}

func newOpenAICompleter(model string) (*openaiCompleter, error) {
	key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if key == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}
	return &openaiCompleter{client: openai.NewClient(key), model: model}, nil
}

func (c *openaiCompleter) Complete(ctx context.Context, system string, messages []Message) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: c.convert(system, messages),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *openaiCompleter) Stream(ctx context.Context, system string, messages []Message) (*Stream, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: c.convert(system, messages),
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion stream: %w", err)
	}
	return &Stream{
		recv: func() (string, error) {
			for {
				resp, err := stream.Recv()
				if err != nil {
					if errors.Is(err, io.EOF) {
						return "", io.EOF
					}
					return "", err
				}
				if len(resp.Choices) == 0 {
					continue
				}
				return resp.Choices[0].Delta.Content, nil
			}
		},
		close: func() { stream.Close() },
	}, nil
}

func (c *openaiCompleter) convert(system string, messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
