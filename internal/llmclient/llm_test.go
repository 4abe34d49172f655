package llmclient

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	genai "google.golang.org/genai"

	"rftdraft/internal/apperr"
)

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences("  {\"a\":1}  "))
	assert.Equal(t, "", StripFences("```"))
}

func TestGenerateJSONRejectsProse(t *testing.T) {
	f := NewFakeClient(nil).Push("Sure! Here is the analysis.", nil)
	_, err := GenerateJSON(context.Background(), f, []Part{TextPart("x")}, Options{})
	assert.ErrorIs(t, err, ErrInvalidJSON)
	require.Len(t, f.Calls(), 1)
	assert.True(t, f.Calls()[0].Opts.JSON)
}

func TestGenerateJSONAcceptsFencedObject(t *testing.T) {
	f := NewFakeClient(nil).Push("```json\n{\"summary\":\"ok\"}\n```", nil)
	raw, err := GenerateJSON(context.Background(), f, []Part{TextPart("x")}, Options{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary":"ok"}`, string(raw))
}

func TestFakeClientScriptThenResponder(t *testing.T) {
	f := NewFakeClient(func(_ context.Context, c Call) (string, error) {
		return "echo:" + c.Text(), nil
	})
	f.Push("", errors.New("boom"))

	_, err := f.Generate(context.Background(), []Part{TextPart("a")}, Options{})
	require.EqualError(t, err, "boom")
	out, err := f.Generate(context.Background(), []Part{TextPart("b"), BlobPart("application/pdf", []byte("%PDF"))}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "echo:b", out)
	assert.Len(t, f.Calls(), 2)
}

func TestFakeClientWithoutScript(t *testing.T) {
	_, err := NewFakeClient(nil).Generate(context.Background(), nil, Options{})
	assert.Error(t, err)
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{Missing: []string{"GEMINI_API_KEY"}}.Generate(context.Background(), nil, Options{})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConfig, apperr.KindOf(err))
	assert.Equal(t, "Missing required environment variables: GEMINI_API_KEY", err.Error())
}

func TestToGenaiParts(t *testing.T) {
	parts := toGenaiParts([]Part{TextPart("hello"), BlobPart("application/pdf", []byte("%PDF"))})
	require.Len(t, parts, 2)
	assert.Equal(t, "hello", parts[0].Text)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "application/pdf", parts[1].InlineData.MIMEType)
}

func TestClassifyPermanent(t *testing.T) {
	err := classify(genai.APIError{Code: http.StatusUnauthorized, Message: "bad key"})
	var perm *PermanentError
	assert.True(t, errors.As(err, &perm))

	transient := errors.New("connection reset")
	assert.Equal(t, transient, classify(transient))
}
