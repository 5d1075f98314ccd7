package extract

import (
	"context"
	"fmt"
	"strings"

	"charm.land/fantasy"
	"charm.land/fantasy/providers/openai"
)

const transcribePrompt = `You transcribe text from images for a fact-checking tool.

Return only the text visible in the image, verbatim, preserving line breaks.
Do not summarize, translate, correct or comment on the text.
If the image contains no readable text, return an empty response.`

// VisionRecognizer reads text from images with a vision-capable language model
type VisionRecognizer struct {
	model fantasy.LanguageModel
}

// NewVisionRecognizer creates a recognizer backed by an OpenAI-compatible API
func NewVisionRecognizer(ctx context.Context, apiKey, baseURL, modelName string) (*VisionRecognizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required for image text extraction")
	}

	provider, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithAPIKey(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI provider: %w", err)
	}

	model, err := provider.LanguageModel(ctx, modelName)
	if err != nil {
		return nil, fmt.Errorf("failed to create language model: %w", err)
	}

	return &VisionRecognizer{model: model}, nil
}

// Recognize implements Recognizer
func (v *VisionRecognizer) Recognize(ctx context.Context, image []byte, mimeType string) (string, error) {
	agent := fantasy.NewAgent(v.model, fantasy.WithSystemPrompt(transcribePrompt))
	result, err := agent.Generate(ctx, fantasy.AgentCall{
		Prompt: "Transcribe the text in the attached image.",
		Files: []fantasy.FilePart{{
			Filename:  "upload",
			Data:      image,
			MediaType: mimeType,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("agent generation failed: %w", err)
	}

	return strings.TrimSpace(result.Response.Content.Text()), nil
}
