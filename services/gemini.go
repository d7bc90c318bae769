package services

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"github.com/Sachin-Buluswar/DebateAI-sub002/internal/recovery"
)

// NewGeminiClient creates the shared Gemini client used by the
// generation gateway and the analysis service.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	config := &genai.ClientConfig{}
	if apiKey != "" {
		config.APIKey = apiKey
	}
	return genai.NewClient(ctx, config)
}

func generateModelText(ctx context.Context, client *genai.Client, modelName, prompt string) (string, error) {
	if client == nil {
		return "", errors.New("gemini client not initialized")
	}
	resp, err := client.Models.GenerateContent(ctx, modelName, genai.Text(prompt), nil)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	return cleanModelOutput(resp.Text()), nil
}

// classifyGeminiError maps API errors onto status errors so the retry
// predicate can separate rate limits and server errors from client ones.
func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &recovery.StatusError{Code: apiErr.Code, Message: apiErr.Message}
	}
	return err
}

func cleanModelOutput(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
