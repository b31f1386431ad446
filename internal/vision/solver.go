// Package vision implements the CaptchaSolver port against an
// OpenAI-compatible chat-completions endpoint using a vision-capable model.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	systemPrompt = "You are a specialized CAPTCHA recognition system. Your sole task is to identify " +
		"and extract the text or characters shown in CAPTCHA images. Provide ONLY the exact characters " +
		"you see in the CAPTCHA - no explanations, no additional text. If you're uncertain about a " +
		"character, make your best guess. Respond with just the raw CAPTCHA text."

	userPrompt = "This image contains a CAPTCHA from a trademark filing website. Extract ONLY the " +
		"text from the CAPTCHA. Provide just the characters, nothing else."

	maxAnswerTokens = 50
)

// Solver calls the vision API's chat-completions endpoint with the challenge
// image and returns the model's raw guess.
type Solver struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewSolver creates a Solver for the given endpoint, key and model.
func NewSolver(endpoint, apiKey, model string) *Solver {
	return &Solver{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Solve implements the CaptchaSolver port: it submits the PNG challenge and
// returns the model's trimmed answer. The caller decides whether the answer
// is correct by inspecting portal state after submission.
func (s *Solver) Solve(ctx context.Context, image []byte) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(image)

	body := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: userPrompt},
				{Type: "image_url", ImageURL: &imageURL{URL: "data:image/png;base64," + encoded}},
			}},
		},
		MaxTokens: maxAnswerTokens,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal vision request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("vision API call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("vision API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode vision response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("vision API returned no choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// Ping verifies the endpoint is reachable and the key is accepted, without
// spending tokens on an image. Used by the validate command.
func (s *Solver) Ping(ctx context.Context) error {
	body := chatRequest{
		Model:     s.model,
		Messages:  []chatMessage{{Role: "user", Content: "ping"}},
		MaxTokens: 1,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("vision API unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("vision API rejected the key: status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("vision API unavailable: status %d", resp.StatusCode)
	}
	return nil
}
