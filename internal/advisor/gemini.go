// Package advisor answers spending questions through Google's
// generative language API. The API key belongs to the caller and is
// never persisted; discovered model names are cached per key.
package advisor

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"spendwise/internal/core"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	fallbackModel  = "gemini-1.5-flash"

	// recentExpenseLimit bounds how much history goes into the prompt
	// to keep requests under the free-tier token limits.
	recentExpenseLimit = 20
)

var (
	ErrMissingAPIKey = errors.New("api key is missing")
	ErrRateLimited   = errors.New("usage limit exceeded, wait a minute before trying again")
	ErrEmptyReply    = errors.New("model returned an empty reply")
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type modelList struct {
	Models []struct {
		Name                       string   `json:"name"`
		SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
	} `json:"models"`
}

type Client struct {
	baseURL    string // overridable in tests
	httpClient *http.Client
	models     *gocache.Cache // hashed api key -> model name
	logger     *slog.Logger
}

func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		models:     gocache.New(time.Hour, 10*time.Minute),
		logger:     logger,
	}
}

// Chat sends the user's question plus a summary of their recent
// expenses to the model and returns its reply.
func (c *Client) Chat(ctx context.Context, apiKey, message string, expenses []core.Expense) (string, error) {
	if apiKey == "" {
		return "", ErrMissingAPIKey
	}

	model := c.discoverModel(ctx, apiKey)
	prompt := buildPrompt(message, expenses)

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		var apiErr geminiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("model returned %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("model returned %d: %s", resp.StatusCode, raw)
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyReply
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

// discoverModel asks the API which generation models the key can use,
// preferring the cheaper flash variants. Failures fall back to a known
// model rather than surfacing an error.
func (c *Client) discoverModel(ctx context.Context, apiKey string) string {
	cacheKey := hashKey(apiKey)
	if v, ok := c.models.Get(cacheKey); ok {
		return v.(string)
	}

	model := c.fetchModel(ctx, apiKey)
	c.models.SetDefault(cacheKey, model)
	return model
}

func (c *Client) fetchModel(ctx context.Context, apiKey string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models?key="+apiKey, nil)
	if err != nil {
		return fallbackModel
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Model discovery failed, using fallback", "error", err)
		return fallbackModel
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fallbackModel
	}

	var list modelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return fallbackModel
	}

	var candidates []string
	for _, m := range list.Models {
		name := strings.TrimPrefix(m.Name, "models/")
		if !strings.Contains(name, "gemini") {
			continue
		}
		for _, method := range m.SupportedGenerationMethods {
			if method == "generateContent" {
				candidates = append(candidates, name)
				break
			}
		}
	}
	if len(candidates) == 0 {
		return fallbackModel
	}

	// Flash variants first, then whatever order the API gave.
	sort.SliceStable(candidates, func(i, j int) bool {
		return strings.Contains(candidates[i], "flash") && !strings.Contains(candidates[j], "flash")
	})
	return candidates[0]
}

func hashKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:8])
}
