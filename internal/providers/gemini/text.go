package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	DefaultTextModel     = "gemini-2.5-flash"
	DefaultAnalysisModel = "gemini-3-pro-preview"
)

// TextModel produces text from a prompt and optional inline media.
type TextModel interface {
	GenerateText(ctx context.Context, model string, parts ...genai.Part) (string, error)
}

// SDKText is a TextModel backed by the generative-ai-go client.
type SDKText struct {
	client *genai.Client
}

func NewSDKText(ctx context.Context, apiKey string, opts ...option.ClientOption) (*SDKText, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: api key required")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}
	return &SDKText{client: client}, nil
}

func (s *SDKText) GenerateText(ctx context.Context, model string, parts ...genai.Part) (string, error) {
	resp, err := s.client.GenerativeModel(model).GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("no candidates returned from Gemini")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", nil
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String(), nil
}

func (s *SDKText) Close() error {
	return s.client.Close()
}

// Writer invents scenarios and describes results through a TextModel.
type Writer struct {
	text          TextModel
	textModel     string
	analysisModel string
}

func NewWriter(text TextModel, textModel, analysisModel string) *Writer {
	return &Writer{
		text:          text,
		textModel:     coalesce(textModel, DefaultTextModel),
		analysisModel: coalesce(analysisModel, DefaultAnalysisModel),
	}
}

type scenarioPayload struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	PromptSuffix string `json:"promptSuffix"`
}

// InventScenario asks the text model for a fresh scene. Output without a
// usable directive is an error.
func (w *Writer) InventScenario(ctx context.Context) (title, description, directive string, err error) {
	raw, err := w.text.GenerateText(ctx, w.textModel, genai.Text(scenarioPrompt))
	if err != nil {
		return "", "", "", err
	}
	payload, err := parseModelPayload[scenarioPayload](raw)
	if err != nil {
		return "", "", "", fmt.Errorf("gemini: parse scenario: %w", err)
	}
	directive = strings.TrimSpace(payload.PromptSuffix)
	if directive == "" {
		return "", "", "", errors.New("gemini: scenario without directive")
	}
	return coalesce(payload.Name, "Random Time Jump"), strings.TrimSpace(payload.Description), directive, nil
}

// DescribeScene returns a free-text analysis of img.
func (w *Writer) DescribeScene(ctx context.Context, img []byte, mime string) (string, error) {
	format := strings.TrimPrefix(coalesce(mime, "image/jpeg"), "image/")
	text, err := w.text.GenerateText(ctx, w.analysisModel, genai.ImageData(format, img), genai.Text(analysisPrompt))
	if err != nil {
		return "", err
	}
	return coalesce(text, emptyAnalysis), nil
}
