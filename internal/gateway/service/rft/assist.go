package rft

import (
	"context"
	"strings"

	"rftdraft/internal/apperr"
	"rftdraft/internal/document"
	"rftdraft/internal/gateway/config"
	"rftdraft/internal/tender"
	"rftdraft/internal/validate"
)

type AssistInput struct {
	Prompt      string   `json:"prompt" validate:"required"`
	Temperature *float32 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"maxTokens,omitempty"`
	Mode        string   `json:"mode,omitempty"`
}

type AssistResult struct {
	Content string `json:"content"`
}

// Assist runs one free-form generation for the assistant panel.
func (s *Service) Assist(ctx context.Context, in AssistInput) (AssistResult, error) {
	in.Prompt = strings.TrimSpace(in.Prompt)
	if err := validate.Struct(in); err != nil {
		return AssistResult{}, err
	}
	opts := tender.DefaultOptions()
	if in.Temperature != nil {
		opts.Temperature = *in.Temperature
	}
	if in.MaxTokens != nil {
		opts.MaxTokens = *in.MaxTokens
	}
	opts.Mode = strings.TrimSpace(in.Mode)
	if err := validate.Struct(opts); err != nil {
		return AssistResult{}, err
	}
	if err := s.requireConfig(config.FeatureAI); err != nil {
		return AssistResult{}, err
	}
	out, err := s.generator.Generate(ctx, in.Prompt, opts)
	if err != nil {
		return AssistResult{}, err
	}
	return AssistResult{Content: out}, nil
}

type AnalyzeInput struct {
	Text string `json:"text" validate:"required"`
}

// AnalyzeText runs the tender analysis over pasted text without opening a task.
func (s *Service) AnalyzeText(ctx context.Context, in AnalyzeInput) (tender.Analysis, error) {
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		return tender.Analysis{}, apperr.Validation("text is required for analyzeTender action")
	}
	if err := s.requireConfig(config.FeatureAI); err != nil {
		return tender.Analysis{}, err
	}
	return s.generator.Analyze(ctx, document.Document{
		Name:     "pasted text",
		MIMEType: "text/plain",
		Data:     []byte(in.Text),
	})
}
