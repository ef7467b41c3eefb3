package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	applog "spendwise/internal/log"
)

// DefaultEndpoint is the Generative Language API base URL.
const DefaultEndpoint = "https://generativelanguage.googleapis.com/"

const maxResponseBytes = 4 << 20

// GeminiConfig configures the Gemini relay.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Option customizes a Gemini relay.
type Option func(*Gemini)

// WithEndpoint overrides the API base URL.
func WithEndpoint(endpoint string) Option {
	return func(g *Gemini) {
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		g.endpoint = endpoint
	}
}

// WithHTTPClient replaces the HTTP client used for model calls.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gemini) { g.client = c }
}

// Gemini relays conversations to the Generative Language API
// generateContent method.
type Gemini struct {
	client   *http.Client
	endpoint string
	apiKey   string
	model    string
	timeout  time.Duration
	logger   *applog.Logger
}

// NewGemini builds a relay. An empty API key is accepted so the server can
// start without the assistant; every Converse then fails with
// KindInvalidCredential and no network call is made.
func NewGemini(cfg GeminiConfig, logger *applog.Logger, opts ...Option) (*Gemini, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("gemini model is required")
	}
	g := &Gemini{
		client:   &http.Client{},
		endpoint: DefaultEndpoint,
		apiKey:   cfg.APIKey,
		model:    modelResource(cfg.Model),
		timeout:  cfg.Timeout,
		logger:   logger.WithComponent(applog.ComponentLLM),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.apiKey == "" {
		g.logger.Warn("Gemini API key not configured, assistant requests will fail")
	}
	return g, nil
}

func modelResource(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type candidate struct {
	Content      *content `json:"content"`
	FinishReason string   `json:"finishReason"`
}

type generateResponse struct {
	Candidates     []candidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Converse sends one generateContent request.
func (g *Gemini) Converse(ctx context.Context, systemPrompt string, history []Turn, message string) (string, error) {
	if g.apiKey == "" {
		return "", &Error{Kind: KindInvalidCredential, Message: "GEMINI_API_KEY is not set"}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.generate(ctx, generateRequest{Contents: buildContents(systemPrompt, history, message)})
	if err != nil {
		lerr := classify(err)
		g.logger.WarnContext(ctx, "Model call failed",
			applog.FieldModel, g.model,
			applog.FieldErrorType, lerr.Kind.String(),
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldError, err.Error())
		return "", lerr
	}

	text, err := replyText(resp)
	if err != nil {
		return "", err
	}
	g.logger.DebugContext(ctx, "Model call completed",
		applog.FieldModel, g.model,
		applog.FieldDuration, time.Since(start).Milliseconds())
	return text, nil
}

// generate performs the HTTP exchange. Non-2xx replies come back as
// *googleapi.Error carrying the decoded error envelope.
func (g *Gemini) generate(ctx context.Context, body generateRequest) (*generateResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}

	url := g.endpoint + "v1beta/" + g.model + ":generateContent"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	res, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send generate request: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read generate response: %w", err)
	}
	if err := googleapi.CheckResponseWithBody(res, raw); err != nil {
		return nil, err
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode generate response: %w", err)
	}
	return &out, nil
}

// buildContents lays out the conversation as
// [system prompt, acknowledgment, history..., message].
func buildContents(systemPrompt string, history []Turn, message string) []content {
	contents := make([]content, 0, len(history)+3)
	contents = append(contents,
		textContent("user", systemPrompt),
		textContent("model", Acknowledgment),
	)
	for _, t := range history {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		role := "model"
		if t.Role == RoleUser {
			role = "user"
		}
		contents = append(contents, textContent(role, t.Content))
	}
	return append(contents, textContent("user", message))
}

func textContent(role, text string) content {
	return content{Role: role, Parts: []part{{Text: text}}}
}

func replyText(resp *generateResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", &Error{Kind: KindFailure, Message: "prompt blocked: " + resp.PromptFeedback.BlockReason}
		}
		return "", &Error{Kind: KindFailure, Message: "model returned no candidates"}
	}

	cand := resp.Candidates[0]
	var b strings.Builder
	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			b.WriteString(p.Text)
		}
	}
	if b.Len() == 0 {
		msg := "model returned an empty reply"
		if cand.FinishReason != "" {
			msg += " (finish reason " + cand.FinishReason + ")"
		}
		return "", &Error{Kind: KindFailure, Message: msg}
	}
	return b.String(), nil
}
