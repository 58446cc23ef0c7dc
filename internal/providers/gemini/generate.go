package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"livetrans/internal/domain"
)

// Generator runs one-shot generateContent requests against a fixed model.
// It implements ports.Summarizer.
type Generator struct {
	cfg        Config
	credential string
	model      string
}

// Generator builds a one-shot client sharing the provider's endpoint config.
func (p *Provider) Generator(credential string, model string) *Generator {
	return &Generator{cfg: p.cfg, credential: credential, model: model}
}

// Summarize sends a text-only prompt and returns the generated text.
func (g *Generator) Summarize(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, []map[string]any{{"text": prompt}})
}

// AnalyzeAudio sends an inline audio payload plus an instruction prompt.
func (g *Generator) AnalyzeAudio(ctx context.Context, audio []byte, mimeType string, prompt string) (string, error) {
	if mimeType == "" {
		mimeType = "audio/mp3"
	}
	return g.generate(ctx, []map[string]any{
		{"inlineData": map[string]string{
			"mimeType": mimeType,
			"data":     base64.StdEncoding.EncodeToString(audio),
		}},
		{"text": prompt},
	})
}

func (g *Generator) generate(ctx context.Context, parts []map[string]any) (string, error) {
	if strings.TrimSpace(g.credential) == "" {
		return "", fmt.Errorf("%w: missing api key", domain.ErrAuthentication)
	}

	body, err := json.Marshal(map[string]any{
		"contents": []map[string]any{{"parts": parts}},
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", domain.ErrSummarization, err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(g.cfg.RESTBaseURL, "/"), g.model, g.credential)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSummarization, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSummarization, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", domain.ErrSummarization, err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: service rejected the api key", domain.ErrAuthentication)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status %d", domain.ErrSummarization, resp.StatusCode)
	}

	text := extractText(payload)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", domain.ErrSummarization)
	}
	return text, nil
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func extractText(payload []byte) string {
	var resp generateResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return ""
	}
	if len(resp.Candidates) == 0 {
		return ""
	}

	var builder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		builder.WriteString(part.Text)
	}
	return strings.TrimSpace(builder.String())
}
