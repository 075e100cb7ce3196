package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

const (
	// DefaultModelName is the Gemini model used to classify commands.
	DefaultModelName = "gemini-2.5-flash"
	// DefaultTemperature keeps answers close to deterministic.
	DefaultTemperature float32 = 0.3
)

// ContentGenerator is the subset of the genai Models service the classifier uses.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClassifier classifies commands with a Gemini model.
type GeminiClassifier struct {
	models ContentGenerator
	model  string
	log    zerolog.Logger
}

// NewGeminiClient creates a genai client for the Gemini API.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiClient: create genai client: %w", err)
	}
	return client, nil
}

// NewGeminiClassifier wraps a content generator, usually client.Models.
// An empty model selects DefaultModelName.
func NewGeminiClassifier(models ContentGenerator, model string, log zerolog.Logger) *GeminiClassifier {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiClassifier{models: models, model: model, log: log}
}

// Classify sends the command and its context to the model and decodes the JSON answer.
func (c *GeminiClassifier) Classify(ctx context.Context, req Request) (Response, error) {
	system, err := BuildSystemInstruction(req)
	if err != nil {
		return Response{}, fmt.Errorf("Classify: building instruction: %w", err)
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    ResponseSchema(),
		Temperature:       genai.Ptr(DefaultTemperature),
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(req.Text), config)
	if err != nil {
		return Response{}, fmt.Errorf("Classify: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return Response{}, fmt.Errorf("Classify: empty response from model")
	}

	out, err := DecodeResponse(rawText)
	if err != nil {
		return Response{}, fmt.Errorf("Classify: %w", err)
	}

	c.log.Debug().
		Str("model", c.model).
		Str("action", string(out.Action)).
		Msg("Command classified")

	return out, nil
}

// DecodeResponse parses model output into a Response, tolerating Markdown fences.
func DecodeResponse(raw string) (Response, error) {
	clean := cleanModelJSON(raw)

	var out Response
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return Response{}, fmt.Errorf("DecodeResponse: unmarshal JSON: %w\nraw response: %s", err, raw)
	}
	if out.Action == "" {
		return Response{}, fmt.Errorf("DecodeResponse: response has no action")
	}
	return out, nil
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only the outermost object if there is chatter around it.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}

var _ Classifier = (*GeminiClassifier)(nil)
