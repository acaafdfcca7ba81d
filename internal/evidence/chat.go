package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Harshitk-cp/factlearn/internal/domain"
	"golang.org/x/time/rate"
)

const (
	xaiChatURL    = "https://api.x.ai/v1/chat/completions"
	openAIChatURL = "https://api.openai.com/v1/chat/completions"

	defaultXAIModel    = "grok-3-mini"
	defaultOpenAIModel = "gpt-4o-mini"
)

// ChatClient asks an OpenAI-compatible chat completions endpoint for a JSON
// verdict on a claim. With live search enabled (xAI) the model may consult
// the web and the response citations are added to the sources.
type ChatClient struct {
	endpoint   string
	apiKey     string
	model      string
	liveSearch bool
	limiter    *rate.Limiter
	httpClient *http.Client
}

func NewXAIClient(apiKey, model string, rps float64) *ChatClient {
	if model == "" {
		model = defaultXAIModel
	}
	return newChatClient(xaiChatURL, apiKey, model, true, rps)
}

func NewOpenAIClient(apiKey, model string, rps float64) *ChatClient {
	if model == "" {
		model = defaultOpenAIModel
	}
	return newChatClient(openAIChatURL, apiKey, model, false, rps)
}

func newChatClient(endpoint, apiKey, model string, liveSearch bool, rps float64) *ChatClient {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &ChatClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
		liveSearch: liveSearch,
		limiter:    rate.NewLimiter(limit, 1),
		httpClient: &http.Client{},
	}
}

// WithEndpoint points the client at another base URL (tests, proxies).
func (c *ChatClient) WithEndpoint(url string) *ChatClient {
	c.endpoint = url
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type searchParameters struct {
	Mode            string `json:"mode"`
	ReturnCitations bool   `json:"return_citations"`
}

type chatRequest struct {
	Model            string            `json:"model"`
	Messages         []chatMessage     `json:"messages"`
	Temperature      float32           `json:"temperature"`
	SearchParameters *searchParameters `json:"search_parameters,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations,omitempty"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type verdict struct {
	Verified   *bool          `json:"verified"`
	Confidence *float64       `json:"confidence"`
	Evidence   string         `json:"evidence"`
	Sources    []string       `json:"sources"`
	Details    map[string]any `json:"details"`
}

func (c *ChatClient) Search(ctx context.Context, claim string) (*domain.Evidence, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, classify(ctx, fmt.Errorf("rate limit wait: %w", err))
	}

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(verifyPrompt, claim)},
		},
		Temperature: 0,
	}
	if c.liveSearch {
		req.SearchParameters = &searchParameters{Mode: "on", ReturnCitations: true}
	}

	content, citations, err := c.complete(ctx, req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	return parseVerdict(content, citations)
}

func (c *ChatClient) complete(ctx context.Context, chatReq chatRequest) (string, []string, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return "", nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", nil, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("chat request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", nil, fmt.Errorf("%w: unmarshal chat response: %v", ErrMalformedResponse, err)
	}
	if result.Error != nil {
		return "", nil, fmt.Errorf("chat API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", nil, fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), result.Citations, nil
}

// classify maps a transport failure onto the package sentinels.
func classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrProvider):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrProviderTimeout, err)
	default:
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
}

func parseVerdict(content string, citations []string) (*domain.Evidence, error) {
	// Strip markdown fences if present
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var v verdict
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return nil, fmt.Errorf("%w: %v (raw: %s)", ErrMalformedResponse, err, truncate(content, 200))
	}
	if v.Verified == nil || v.Confidence == nil {
		return nil, fmt.Errorf("%w: verdict missing verified or confidence", ErrMalformedResponse)
	}

	return &domain.Evidence{
		Verified:   *v.Verified,
		Confidence: domain.ClampConfidence(*v.Confidence),
		Evidence:   v.Evidence,
		Sources:    mergeSources(v.Sources, citations),
		Details:    v.Details,
	}, nil
}

func mergeSources(lists ...[]string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, list := range lists {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
