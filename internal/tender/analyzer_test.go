package tender

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rftdraft/internal/apperr"
	"rftdraft/internal/document"
	"rftdraft/internal/llmclient"
)

const validAnalysis = `{
  "summary": "Cleaning services for council buildings",
  "legalRequirements": ["WHS Act compliance"],
  "operationalNeeds": ["After-hours access"],
  "estimationConsiderations": ["12 sites"],
  "keyCriteria": ["Price"],
  "winThemes": ["Local crews"]
}`

func pdfDoc() document.Document {
	return document.Document{Name: "tender.pdf", MIMEType: document.MimePDF, Data: []byte("%PDF-1.7")}
}

func TestAnalyzeParsesStrictShape(t *testing.T) {
	llm := llmclient.NewFakeClient(nil).Push("```json\n"+validAnalysis+"\n```", nil)
	a := NewAnalyzer(llm)

	an, err := a.Analyze(context.Background(), pdfDoc())
	require.NoError(t, err)
	assert.Equal(t, "Cleaning services for council buildings", an.Summary)
	assert.Equal(t, []string{"WHS Act compliance"}, an.LegalRequirements)

	calls := llm.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Opts.JSON)
	assert.Equal(t, analysisPrompt, calls[0].Opts.System)
	require.Len(t, calls[0].Parts, 2)
	assert.True(t, calls[0].Parts[1].IsBlob())
}

func TestAnalyzeFillsMissingLists(t *testing.T) {
	llm := llmclient.NewFakeClient(nil).Push(`{"summary":"Short"}`, nil)
	an, err := NewAnalyzer(llm).Analyze(context.Background(), pdfDoc())
	require.NoError(t, err)
	assert.NotNil(t, an.WinThemes)
	assert.Empty(t, an.WinThemes)
}

func TestAnalyzeRejectsWrongShape(t *testing.T) {
	for _, reply := range []string{
		"The tender looks great.",
		`{"summary":"x","extra":true}`,
		`{"summary":""}`,
		`{"summary":"x","winThemes":"not a list"}`,
	} {
		llm := llmclient.NewFakeClient(nil).Push(reply, nil)
		_, err := NewAnalyzer(llm).Analyze(context.Background(), pdfDoc())
		require.Error(t, err, reply)
		assert.Equal(t, apperr.KindParse, apperr.KindOf(err), reply)
	}
}

func TestAnalyzeTransportFailure(t *testing.T) {
	llm := llmclient.NewFakeClient(nil).Push("", errors.New("deadline exceeded"))
	_, err := NewAnalyzer(llm).Analyze(context.Background(), pdfDoc())
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "Failed to analyze tender")
}

func TestAnalyzeMissingCredentialsPassThrough(t *testing.T) {
	_, err := NewAnalyzer(llmclient.Unavailable{Missing: []string{"GEMINI_API_KEY"}}).Analyze(context.Background(), pdfDoc())
	assert.Equal(t, apperr.KindConfig, apperr.KindOf(err))
}

func TestAnalyzeUnreadableDocument(t *testing.T) {
	llm := llmclient.NewFakeClient(nil)
	doc := document.Document{Name: "scan.png", MIMEType: "image/png", Data: []byte{0x89}}
	_, err := NewAnalyzer(llm).Analyze(context.Background(), doc)
	assert.Equal(t, apperr.KindParse, apperr.KindOf(err))
	assert.Empty(t, llm.Calls())
}

func TestDraftIncludesAnalysis(t *testing.T) {
	llm := llmclient.NewFakeClient(nil).Push("```markdown\n# Response\nBody\n```", nil)
	doc := document.Document{Name: "brief.txt", MIMEType: "text/plain", Data: []byte("Scope: 3 sites")}
	an := &Analysis{Summary: "s", WinThemes: []string{"Local crews"}}

	draft, err := NewAnalyzer(llm).Draft(context.Background(), doc, an)
	require.NoError(t, err)
	assert.Equal(t, "# Response\nBody", draft)

	call := llm.Calls()[0]
	assert.Equal(t, draftingPrompt, call.Opts.System)
	assert.False(t, call.Opts.JSON)
	assert.Contains(t, call.Text(), "Scope: 3 sites")
	assert.Contains(t, call.Text(), "Local crews")
}

func TestDraftRejectsEmptyOutput(t *testing.T) {
	llm := llmclient.NewFakeClient(nil).Push("   ", nil)
	_, err := NewAnalyzer(llm).Draft(context.Background(), pdfDoc(), nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindParse, apperr.KindOf(err))
}

func TestGenerateValidatesOptions(t *testing.T) {
	a := NewAnalyzer(llmclient.NewFakeClient(nil))
	ctx := context.Background()

	_, err := a.Generate(ctx, "", DefaultOptions())
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = a.Generate(ctx, "hi", Options{Temperature: 2.5, MaxTokens: 10})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = a.Generate(ctx, "hi", Options{Temperature: 0.2, MaxTokens: 0})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestGeneratePolishMode(t *testing.T) {
	llm := llmclient.NewFakeClient(nil).Push(" Polished text \n", nil)
	out, err := NewAnalyzer(llm).Generate(context.Background(), "rough text", Options{Temperature: 0.3, MaxTokens: 512, Mode: ModePolish})
	require.NoError(t, err)
	assert.Equal(t, "Polished text", out)

	call := llm.Calls()[0]
	assert.Equal(t, polishInstructions, call.Opts.System)
	require.NotNil(t, call.Opts.Temperature)
	assert.InDelta(t, 0.3, *call.Opts.Temperature, 1e-6)
	assert.EqualValues(t, 512, call.Opts.MaxTokens)
}

func TestOfflineResponderDrivesPipeline(t *testing.T) {
	a := NewAnalyzer(llmclient.NewFakeClient(OfflineResponder))
	an, err := a.Analyze(context.Background(), pdfDoc())
	require.NoError(t, err)
	draft, err := a.Draft(context.Background(), pdfDoc(), &an)
	require.NoError(t, err)
	assert.Contains(t, draft, "# Draft Response")
}
