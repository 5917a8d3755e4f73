package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/feedgrep/feedgrep/internal/config"
	"github.com/feedgrep/feedgrep/internal/feed"
)

// Summarizer turns a batch of filtered articles into a news digest.
type Summarizer interface {
	Digest(ctx context.Context, articles []feed.Entry) (string, error)
	Title(ctx context.Context, digest string) (string, error)
}

// New creates a Summarizer from the given AI config.
func New(cfg *config.AIConfig, apiKey string) (Summarizer, error) {
	if cfg == nil || apiKey == "" {
		return nil, fmt.Errorf("AI not configured")
	}

	client := &http.Client{Timeout: 120 * time.Second}

	switch cfg.Provider {
	case "claude":
		model := cfg.Model
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		return &claudeProvider{apiKey: apiKey, model: model, client: client}, nil
	case "gemini", "":
		model := cfg.Model
		if model == "" {
			model = "gemini-2.5-flash"
		}
		return &geminiProvider{apiKey: apiKey, model: model, client: client}, nil
	default:
		return nil, fmt.Errorf("unknown AI provider: %q (valid: gemini, claude)", cfg.Provider)
	}
}

const digestPrompt = `You are a news analyst. Summarize the articles below into a two-part report.

Part 1 - KEY DEVELOPMENTS: the 5-10 most significant stories, each as a short
paragraph naming the outlets covering it.

Part 2 - BY CATEGORY: a brief rundown of the remaining notable items, grouped
under their category headings.

Be factual and concise. Do not invent stories that are not in the input.`

const titlePrompt = `Create a title from the most important development listed in the report that is no more than 10 words in length. Output only the title, nothing else.

Report:
%s`

// BuildPrompt formats the article batch into the digest request body.
func BuildPrompt(articles []feed.Entry) string {
	var sb strings.Builder
	sb.WriteString(digestPrompt)
	sb.WriteString("\n\n---\n\nARTICLES TO SUMMARIZE:\n\n")
	for i, a := range articles {
		category := a.Category
		if category == "" {
			category = "Uncategorized"
		}
		published := ""
		if a.Published != nil {
			published = a.Published.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(&sb, "%d. [%s] %s (%s)\n", i+1, category, a.FeedTitle, published)
		fmt.Fprintf(&sb, "   Title: %s\n", a.Title)
		fmt.Fprintf(&sb, "   URL: %s\n", a.Link)
		if a.Summary != "" {
			fmt.Fprintf(&sb, "   Summary: %s\n", a.Summary)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n---\n\nPlease provide the two-part summary as specified above.")
	return sb.String()
}

// EstimateTokens approximates the token cost of sending the article batch.
func EstimateTokens(articles []feed.Entry) int {
	words := 0
	for _, a := range articles {
		words += wordCount(a.Title) + wordCount(a.Summary)
	}
	return int(float64(words) * 1.34)
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// --- Gemini provider ---

type geminiProvider struct {
	apiKey string
	model  string
	client *http.Client
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *geminiProvider) Digest(ctx context.Context, articles []feed.Entry) (string, error) {
	return g.call(ctx, BuildPrompt(articles))
}

func (g *geminiProvider) Title(ctx context.Context, digest string) (string, error) {
	text, err := g.call(ctx, fmt.Sprintf(titlePrompt, digest))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (g *geminiProvider) call(ctx context.Context, prompt string) (string, error) {
	body, _ := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})

	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", g.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("gemini API %d: %s", resp.StatusCode, string(b))
	}

	var gr geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", err
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty gemini response")
	}
	return gr.Candidates[0].Content.Parts[0].Text, nil
}

// --- Claude provider ---

type claudeProvider struct {
	apiKey string
	model  string
	client *http.Client
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (c *claudeProvider) Digest(ctx context.Context, articles []feed.Entry) (string, error) {
	return c.call(ctx, BuildPrompt(articles))
}

func (c *claudeProvider) Title(ctx context.Context, digest string) (string, error) {
	text, err := c.call(ctx, fmt.Sprintf(titlePrompt, digest))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (c *claudeProvider) call(ctx context.Context, prompt string) (string, error) {
	body, _ := json.Marshal(claudeRequest{
		Model:     c.model,
		MaxTokens: 8192,
		Messages:  []claudeMessage{{Role: "user", Content: prompt}},
	})

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.anthropic.com/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("claude API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("claude API %d: %s", resp.StatusCode, string(b))
	}

	var cr claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Content) == 0 {
		return "", fmt.Errorf("empty claude response")
	}
	return cr.Content[0].Text, nil
}
