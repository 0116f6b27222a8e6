package pkg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// ChatTurn is one prior turn handed to the completion API.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature float32 `json:"temperature"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"system_instruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

// GeminiClient calls the hosted Gemini generateContent API.
type GeminiClient struct {
	client  *http.Client
	apiKey  string
	baseURL string
	model   string
}

func NewGeminiClient(apiKey, baseURL, model string) *GeminiClient {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	return &GeminiClient{
		client:  &http.Client{},
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
	}
}

func (c *GeminiClient) post(ctx context.Context, body interface{}) (*http.Response, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling request body")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}

	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "sending request")
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, errors.Errorf("request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	return resp, nil
}

// Complete sends the system prompt and trailing turns and returns the full
// generated reply. Gemini expects "model" where we store "assistant".
func (c *GeminiClient) Complete(ctx context.Context, systemPrompt string, turns []ChatTurn) (string, error) {
	contents := make([]geminiContent, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: t.Content}},
		})
	}

	reqBody := geminiRequest{
		Contents:         contents,
		GenerationConfig: geminiGenerationConfig{Temperature: 0.7},
	}
	if systemPrompt != "" {
		reqBody.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: systemPrompt}},
		}
	}

	resp, err := c.post(ctx, reqBody)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "reading response body")
	}

	var response geminiResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", errors.Wrap(err, "unmarshaling response")
	}

	if len(response.Candidates) == 0 {
		return "", errors.New("no candidates in response")
	}

	var sb strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
