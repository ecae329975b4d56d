package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"ragchat/internal/domain"
)

// Section is one grant-form section with the questions it asks.
type Section struct {
	Name      string   `json:"name"`
	Questions []string `json:"questions"`
}

// Result is the extracted section/question hierarchy of a form.
type Result struct {
	Sections []Section `json:"sections"`
}

// SystemPrompt instructs the model to pull every fillable section and its
// questions out of a grant-application form, grouped by main section.
// Sub-subsections are folded into the question text of their parent.
const SystemPrompt = `You are an expert at detecting the sections to be filled in on grant application forms.

The document consists of sections and subsections that must be completed to apply for a grant. Extract every such question or section and organize them by main section.

When a subsection contains sub-subsections, append their text to the question of the subsection they belong to instead of emitting them separately.`

// Extractor pulls the section/question hierarchy out of form text using a
// generative call with a schema-constrained JSON response. It shares no
// state with the retrieval pipeline.
type Extractor struct {
	client *genai.Client
	model  string
	loader domain.Loader
}

// New creates an extractor bound to a Gemini model.
func New(ctx context.Context, apiKey, model string, loader domain.Loader) (*Extractor, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Extractor{client: client, model: model, loader: loader}, nil
}

// ExtractFile extracts the section hierarchy from a PDF form on disk.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*Result, error) {
	pages, err := e.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return e.Extract(ctx, strings.Join(pages, " "))
}

// Extract extracts the section hierarchy from already-extracted form text.
func (e *Extractor) Extract(ctx context.Context, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("form text is empty")
	}
	resp, err := e.client.Models.GenerateContent(ctx, e.model, genai.Text(text),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    resultSchema(),
		})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	var result Result
	if err := json.Unmarshal([]byte(resp.Text()), &result); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w", err)
	}
	return &result, nil
}

func resultSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"sections": {
				Type:        genai.TypeArray,
				Description: "List of sections, each with a name and a list of questions/subsections",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name": {
							Type:        genai.TypeString,
							Description: "Name of the section",
						},
						"questions": {
							Type:        genai.TypeArray,
							Description: "List of questions/subsections in this section",
							Items:       &genai.Schema{Type: genai.TypeString},
						},
					},
					Required: []string{"name", "questions"},
				},
			},
		},
		Required: []string{"sections"},
	}
}
