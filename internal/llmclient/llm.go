package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"rftdraft/internal/apperr"
)

var (
	ErrInvalidJSON   = errors.New("invalid json from LLM")
	ErrEmptyResponse = errors.New("empty response from LLM")
)

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// Part is one piece of user content: either text or an inline binary blob.
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

func TextPart(s string) Part { return Part{Text: s} }

func BlobPart(mimeType string, data []byte) Part {
	return Part{MIMEType: mimeType, Data: data}
}

func (p Part) IsBlob() bool { return len(p.Data) > 0 }

type Options struct {
	System      string
	Temperature *float32
	MaxTokens   int32
	// JSON asks the model for an application/json reply.
	JSON bool
}

type Client interface {
	Name() string
	Generate(ctx context.Context, parts []Part, opts Options) (string, error)
}

// GenerateJSON requests a JSON reply and rejects anything that does not parse.
func GenerateJSON(ctx context.Context, c Client, parts []Part, opts Options) (json.RawMessage, error) {
	opts.JSON = true
	out, err := c.Generate(ctx, parts, opts)
	if err != nil {
		return nil, err
	}
	out = StripFences(out)
	if !json.Valid([]byte(out)) {
		return nil, ErrInvalidJSON
	}
	return json.RawMessage(out), nil
}

// StripFences removes a surrounding Markdown code fence, if any.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Unavailable is installed when model credentials are missing.
type Unavailable struct {
	Missing []string
}

func (u Unavailable) Name() string { return "unavailable" }

func (u Unavailable) Generate(context.Context, []Part, Options) (string, error) {
	return "", apperr.MissingConfig(u.Missing)
}
