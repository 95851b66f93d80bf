package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/lehigh-university-libraries/shelfscan/internal/providers"
)

// Ollama is a provider for Ollama
type Ollama struct {
	baseURL    string
	httpClient *http.Client
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// New returns a new Ollama provider. The host falls back to OLLAMA_URL, OLLAMA_HOST, then localhost.
func New(baseURL string) *Ollama {
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_URL")
	}
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_HOST")
	}
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Ollama{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// ExtractText sends the parts through the chat endpoint and returns the reply
func (o *Ollama) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	requestBody, err := json.Marshal(map[string]interface{}{
		"model":    config.Model,
		"messages": toMessages(config.Parts),
		"stream":   false,
		"options": map[string]interface{}{
			"temperature": config.Temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/chat", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Message chatMessage `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	return response.Message.Content, nil
}

// toMessages maps parts onto chat messages. Ollama attaches images to a message
// rather than interleaving them, so each image rides on the text message that
// precedes it, which keeps a filename label and its image together.
func toMessages(parts []providers.Part) []chatMessage {
	var messages []chatMessage
	for _, p := range parts {
		if p.IsImage() {
			if len(messages) == 0 {
				messages = append(messages, chatMessage{Role: "user"})
			}
			last := &messages[len(messages)-1]
			last.Images = append(last.Images, base64.StdEncoding.EncodeToString(p.Data))
			continue
		}
		messages = append(messages, chatMessage{Role: "user", Content: p.Text})
	}
	return messages
}
