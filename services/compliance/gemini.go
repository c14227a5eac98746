package compliance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/upb/tender-guardian/config"
	"github.com/upb/tender-guardian/services"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiOracle implements the Oracle interface against the Gemini API
type GeminiOracle struct {
	apiKey     string
	baseURL    string
	model      string
	maxRetries int
	httpClient *http.Client
}

// NewGeminiOracle creates a new Gemini-backed oracle
func NewGeminiOracle(cfg config.OracleConfig) *GeminiOracle {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &GeminiOracle{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      cfg.Model,
		maxRetries: maxRetries,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the oracle name
func (o *GeminiOracle) Name() string {
	return "gemini"
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Analyze sends the prompt to the Gemini generateContent endpoint
func (o *GeminiOracle) Analyze(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if o.apiKey == "" {
		return "", services.ErrOracleKeyMissing
	}

	reqBody, err := json.Marshal(geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", services.WrapExternal("failed to encode oracle request", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", o.baseURL, o.model)

	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", services.WrapExternal("oracle request cancelled", ctx.Err())
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
		if err != nil {
			return "", services.WrapExternal("failed to build oracle request", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", o.apiKey)

		resp, lastErr = o.httpClient.Do(req)
		if lastErr != nil {
			continue
		}
		if resp.StatusCode >= 500 && attempt < o.maxRetries {
			// Retryable; the exhausted attempt falls through with the
			// response intact so the status and error message surface.
			resp.Body.Close()
			resp = nil
			continue
		}
		break
	}
	if lastErr != nil {
		return "", services.WrapExternal("oracle request failed", lastErr)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.WrapExternal("failed to read oracle response", err)
	}

	var parsed geminiResponse
	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("oracle returned status %d", resp.StatusCode)
		if json.Unmarshal(body, &parsed) == nil && parsed.Error != nil {
			msg = fmt.Sprintf("oracle returned status %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", services.WrapExternal(msg, nil)
	}

	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", services.WrapExternal("failed to decode oracle response", err)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
