package vertex

import (
	"context"
	"fmt"
	"os"

	"github.com/lehigh-university-libraries/shelfscan/internal/providers"
	"google.golang.org/genai"
)

// Vertex is a provider for Gemini models served through Vertex AI.
// Credentials come from Application Default Credentials.
type Vertex struct {
	project  string
	location string
}

// New returns a new Vertex provider, falling back to GOOGLE_CLOUD_PROJECT and
// GOOGLE_CLOUD_LOCATION for empty values
func New(project, location string) *Vertex {
	if project == "" {
		project = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if location == "" {
		location = os.Getenv("GOOGLE_CLOUD_LOCATION")
	}
	if location == "" {
		location = "us-central1"
	}
	return &Vertex{project: project, location: location}
}

// ExtractText sends the ordered parts to Vertex AI and returns the response text
func (v *Vertex) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	if v.project == "" {
		return "", fmt.Errorf("GOOGLE_CLOUD_PROJECT not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  v.project,
		Location: v.location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create vertex client: %w", err)
	}

	contents := []*genai.Content{genai.NewContentFromParts(toParts(config.Parts), genai.RoleUser)}
	temperature := float32(config.Temperature)

	resp, err := client.Models.GenerateContent(ctx, config.Model, contents, &genai.GenerateContentConfig{
		Temperature: &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Vertex AI")
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty content returned from Vertex AI (finish reason: %s)", resp.Candidates[0].FinishReason)
	}
	return text, nil
}

func toParts(parts []providers.Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.IsImage() {
			out = append(out, genai.NewPartFromBytes(p.Data, p.MIMEType))
			continue
		}
		out = append(out, genai.NewPartFromText(p.Text))
	}
	return out
}
