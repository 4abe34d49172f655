// Package tender turns a tender document into a structured analysis and a
// Markdown draft response using a generative model.
package tender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"rftdraft/internal/apperr"
	"rftdraft/internal/document"
	"rftdraft/internal/llmclient"
	"rftdraft/internal/logger"
	"rftdraft/internal/validate"
)

// Analysis is the structured reading of a tender.
type Analysis struct {
	Summary                  string   `json:"summary"`
	LegalRequirements        []string `json:"legalRequirements"`
	OperationalNeeds         []string `json:"operationalNeeds"`
	EstimationConsiderations []string `json:"estimationConsiderations"`
	KeyCriteria              []string `json:"keyCriteria"`
	WinThemes                []string `json:"winThemes"`
}

const (
	ModePolish = "polish"

	DefaultTemperature float32 = 0.7
	DefaultMaxTokens           = 2048
)

// Options tune a single free-form generation.
type Options struct {
	Temperature float32 `json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `json:"maxTokens" validate:"gte=1,lte=8192"`
	Mode        string  `json:"mode,omitempty" validate:"omitempty,oneof=polish"`
}

func DefaultOptions() Options {
	return Options{Temperature: DefaultTemperature, MaxTokens: DefaultMaxTokens}
}

type Analyzer struct {
	llm llmclient.Client
}

func NewAnalyzer(llm llmclient.Client) *Analyzer {
	return &Analyzer{llm: llm}
}

func (a *Analyzer) Analyze(ctx context.Context, doc document.Document) (Analysis, error) {
	parts, err := documentParts(doc)
	if err != nil {
		return Analysis{}, err
	}
	raw, err := llmclient.GenerateJSON(ctx, a.llm, parts, llmclient.Options{System: analysisPrompt})
	if err != nil {
		return Analysis{}, wrapModelError("Failed to analyze tender", "Invalid analysis response", err)
	}
	an, err := parseAnalysis(raw)
	if err != nil {
		return Analysis{}, apperr.Parse("Invalid analysis response", err)
	}
	logger.FromContext(ctx).Info("tender analyzed",
		zap.String("document", doc.Name),
		zap.Int("legal_requirements", len(an.LegalRequirements)),
		zap.Int("key_criteria", len(an.KeyCriteria)))
	return an, nil
}

// Draft writes the Markdown response. The analysis is optional context.
func (a *Analyzer) Draft(ctx context.Context, doc document.Document, an *Analysis) (string, error) {
	parts, err := documentParts(doc)
	if err != nil {
		return "", err
	}
	if an != nil {
		insights, err := json.MarshalIndent(an, "", "  ")
		if err != nil {
			return "", err
		}
		parts = append(parts, llmclient.TextPart("[ANALYSIS JSON]\n"+string(insights)))
	}
	out, err := a.llm.Generate(ctx, parts, llmclient.Options{System: draftingPrompt})
	if err != nil {
		return "", wrapModelError("Failed to draft tender response", "Empty draft response", err)
	}
	draft := llmclient.StripFences(out)
	if draft == "" {
		return "", apperr.Parse("Empty draft response", llmclient.ErrEmptyResponse)
	}
	return draft, nil
}

// Generate runs a single-turn prompt for the assistant panel.
func (a *Analyzer) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", apperr.Validation("prompt is required")
	}
	if err := validate.Struct(opts); err != nil {
		return "", err
	}
	temp := opts.Temperature
	lo := llmclient.Options{Temperature: &temp, MaxTokens: int32(opts.MaxTokens)}
	if opts.Mode == ModePolish {
		lo.System = polishInstructions
	}
	out, err := a.llm.Generate(ctx, []llmclient.Part{llmclient.TextPart(prompt)}, lo)
	if err != nil {
		return "", wrapModelError("Failed to generate content", "Empty model response", err)
	}
	return strings.TrimSpace(out), nil
}

func documentParts(doc document.Document) ([]llmclient.Part, error) {
	header := llmclient.TextPart(fmt.Sprintf("[TENDER DOCUMENT: %s]", doc.Name))
	if doc.IsPDF() {
		return []llmclient.Part{header, llmclient.BlobPart(document.MimePDF, doc.Data)}, nil
	}
	text, err := doc.Text()
	if err != nil {
		return nil, apperr.Parse("Unable to read text from "+doc.Name, err)
	}
	return []llmclient.Part{header, llmclient.TextPart(text)}, nil
}

// parseAnalysis decodes the reply strictly: unknown fields and a missing
// summary are rejected, absent lists become empty.
func parseAnalysis(raw json.RawMessage) (Analysis, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var an Analysis
	if err := dec.Decode(&an); err != nil {
		return Analysis{}, err
	}
	if dec.More() {
		return Analysis{}, errors.New("trailing data after analysis object")
	}
	if strings.TrimSpace(an.Summary) == "" {
		return Analysis{}, errors.New("analysis summary is empty")
	}
	for _, list := range []*[]string{
		&an.LegalRequirements, &an.OperationalNeeds, &an.EstimationConsiderations,
		&an.KeyCriteria, &an.WinThemes,
	} {
		if *list == nil {
			*list = []string{}
		}
	}
	return an, nil
}

func wrapModelError(transportMsg, shapeMsg string, err error) error {
	switch {
	case apperr.Is(err, apperr.KindConfig):
		return err
	case errors.Is(err, llmclient.ErrInvalidJSON), errors.Is(err, llmclient.ErrEmptyResponse):
		return apperr.Parse(shapeMsg, err)
	default:
		return apperr.Upstream(transportMsg, err)
	}
}
