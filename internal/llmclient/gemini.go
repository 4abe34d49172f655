package llmclient

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	genai "google.golang.org/genai"

	"rftdraft/internal/logger"
)

const (
	BackendGemini = "gemini"
	BackendVertex = "vertex"
)

type GeminiConfig struct {
	Backend  string
	APIKey   string
	Project  string
	Location string
	Model    string
}

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	cc := &genai.ClientConfig{}
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendVertex:
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.Project
		cc.Location = cfg.Location
	default:
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = cfg.APIKey
	}
	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }

func (g *GeminiClient) Generate(ctx context.Context, parts []Part, opts Options) (string, error) {
	contents := []*genai.Content{{Role: "user", Parts: toGenaiParts(parts)}}
	cfg := &genai.GenerateContentConfig{
		Temperature:     opts.Temperature,
		MaxOutputTokens: opts.MaxTokens,
	}
	if opts.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: opts.System}}}
	}
	if opts.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	log := logger.FromContext(ctx).With(zap.String("model", g.model))
	start := time.Now()
	resp, err := g.cli.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		log.Warn("model call failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return "", classify(err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		sb.WriteString(p.Text)
	}
	out := sb.String()
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyResponse
	}
	log.Info("model call",
		zap.Int("parts", len(parts)),
		zap.Int("response_bytes", len(out)),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

func toGenaiParts(parts []Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.IsBlob() {
			out = append(out, &genai.Part{InlineData: &genai.Blob{MIMEType: p.MIMEType, Data: p.Data}})
			continue
		}
		out = append(out, &genai.Part{Text: p.Text})
	}
	return out
}

// classify marks auth and request errors as permanent.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return NewPermanentError(err)
		}
	}
	return err
}
