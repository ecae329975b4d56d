package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"google.golang.org/genai"
)

type geminiCompleter struct {
	client *genai.Client
	model  string
}

func newGeminiCompleter(ctx context.Context, model string) (*geminiCompleter, error) {
	key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if key == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &geminiCompleter{client: client, model: model}, nil
}

func (c *geminiCompleter) Complete(ctx context.Context, system string, messages []Message) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, c.contents(messages), c.config(system))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}

func (c *geminiCompleter) Stream(ctx context.Context, system string, messages []Message) (*Stream, error) {
	sctx, cancel := context.WithCancel(ctx)
	fragments := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(fragments)
		for resp, err := range c.client.Models.GenerateContentStream(sctx, c.model, c.contents(messages), c.config(system)) {
			if err != nil {
				errc <- err
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			select {
			case fragments <- text:
			case <-sctx.Done():
				return
			}
		}
	}()

	return &Stream{
		recv: func() (string, error) {
			fragment, ok := <-fragments
			if !ok {
				select {
				case err := <-errc:
					return "", err
				default:
					return "", io.EOF
				}
			}
			return fragment, nil
		},
		close: cancel,
	}, nil
}

func (c *geminiCompleter) contents(messages []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(m.Content, role))
	}
	return out
}

func (c *geminiCompleter) config(system string) *genai.GenerateContentConfig {
	if system == "" {
		return nil
	}
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
}
