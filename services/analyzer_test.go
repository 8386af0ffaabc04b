package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"insight-lens/models"
)

// fakeAnalyzer ist ein Analyzer-Stub mit Aufruf-Zähler für die Orchestrator-Tests.
type fakeAnalyzer struct {
	name       string
	configured bool
	outcome    *models.AnalysisOutcome
	panicWith  any
	calls      int
}

func (f *fakeAnalyzer) Analyze(kind models.AnalysisKind, text, prompt string) *models.AnalysisOutcome {
	f.calls++
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return f.outcome
}

func (f *fakeAnalyzer) Name() string     { return f.name }
func (f *fakeAnalyzer) Configured() bool { return f.configured }

func newService(primary, fallback *fakeAnalyzer) *AnalysisService {
	return NewAnalysisService(zap.NewNop(), NewTextNormalizer(zap.NewNop()), primary, fallback)
}

func successOutcome(kind models.AnalysisKind, confidence float64) *models.AnalysisOutcome {
	return &models.AnalysisOutcome{
		Success:    true,
		Kind:       kind,
		Summary:    &models.SummaryResult{Summary: "ok"},
		Message:    "done",
		Confidence: &confidence,
	}
}

func TestAnalyzeFallsBackWhenPrimaryFails(t *testing.T) {
	primary := &fakeAnalyzer{name: "primary", configured: true,
		outcome: models.FailedOutcome(models.KindSummarize, "primary down")}
	fallback := &fakeAnalyzer{name: "fallback", configured: true,
		outcome: successOutcome(models.KindSummarize, 90)}
	svc := newService(primary, fallback)

	outcome := svc.Analyze(models.AnalysisRequest{
		Text: "some reasonably long text for the orchestrator",
		Kind: models.KindSummarize,
	})

	require.True(t, outcome.Success)
	assert.Equal(t, "done", outcome.Message)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestAnalyzeSkipsUnconfiguredPrimary(t *testing.T) {
	primary := &fakeAnalyzer{name: "primary", configured: false,
		outcome: successOutcome(models.KindSummarize, 90)}
	fallback := &fakeAnalyzer{name: "fallback", configured: true,
		outcome: successOutcome(models.KindSummarize, 80)}
	svc := newService(primary, fallback)

	outcome := svc.Analyze(models.AnalysisRequest{
		Text: "some reasonably long text for the orchestrator",
		Kind: models.KindSummarize,
	})

	require.True(t, outcome.Success)
	assert.Equal(t, 0, primary.calls, "unconfigured provider must be skipped, not called")
	assert.Equal(t, 1, fallback.calls)
}

func TestAnalyzeStopsAfterPrimarySuccess(t *testing.T) {
	primary := &fakeAnalyzer{name: "primary", configured: true,
		outcome: successOutcome(models.KindSummarize, 90)}
	fallback := &fakeAnalyzer{name: "fallback", configured: true,
		outcome: successOutcome(models.KindSummarize, 80)}
	svc := newService(primary, fallback)

	outcome := svc.Analyze(models.AnalysisRequest{
		Text: "some reasonably long text for the orchestrator",
		Kind: models.KindSummarize,
	})

	require.True(t, outcome.Success)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, fallback.calls)
}

func TestAnalyzeNoConfiguredProviders(t *testing.T) {
	primary := &fakeAnalyzer{name: "primary"}
	fallback := &fakeAnalyzer{name: "fallback"}
	svc := newService(primary, fallback)

	outcome := svc.Analyze(models.AnalysisRequest{
		Text: "some reasonably long text for the orchestrator",
		Kind: models.KindSentiment,
	})

	require.False(t, outcome.Success)
	assert.Equal(t, "No analysis provider configured", outcome.Message)
	assert.Equal(t, 0, primary.calls)
	assert.Equal(t, 0, fallback.calls)
}

func TestAnalyzeReturnsLastAttemptedFailure(t *testing.T) {
	primary := &fakeAnalyzer{name: "primary", configured: true,
		outcome: models.FailedOutcome(models.KindSummarize, "primary down")}
	fallback := &fakeAnalyzer{name: "fallback", configured: true,
		outcome: models.FailedOutcome(models.KindSummarize, "fallback down")}
	svc := newService(primary, fallback)

	outcome := svc.Analyze(models.AnalysisRequest{
		Text: "some reasonably long text for the orchestrator",
		Kind: models.KindSummarize,
	})

	require.False(t, outcome.Success)
	assert.Equal(t, "fallback down", outcome.Message)
}

func TestAnalyzeEmptyTextFailsWithoutNetworkCall(t *testing.T) {
	primary := &fakeAnalyzer{name: "primary", configured: true,
		outcome: successOutcome(models.KindSummarize, 90)}
	svc := newService(primary, nil)

	outcome := svc.Analyze(models.AnalysisRequest{Text: "", Kind: models.KindSummarize})

	require.False(t, outcome.Success)
	assert.Equal(t, 0, primary.calls, "validation failures must not reach a provider")
}

func TestAnalyzeQuestionRequiresPrompt(t *testing.T) {
	primary := &fakeAnalyzer{name: "primary", configured: true,
		outcome: successOutcome(models.KindQuestion, 90)}
	svc := newService(primary, nil)

	outcome := svc.Analyze(models.AnalysisRequest{
		Text: "valid context text",
		Kind: models.KindQuestion,
	})

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Message, "Prompt is required")
	assert.Equal(t, 0, primary.calls)
}

func TestAnalyzeUnknownKindFails(t *testing.T) {
	primary := &fakeAnalyzer{name: "primary", configured: true,
		outcome: successOutcome(models.KindSummarize, 90)}
	svc := newService(primary, nil)

	outcome := svc.Analyze(models.AnalysisRequest{
		Text: "some reasonably long text",
		Kind: models.AnalysisKind("translate"),
	})

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Message, "Unknown analysis type")
	assert.Equal(t, 0, primary.calls)
}

func TestAnalyzeClampsConfidence(t *testing.T) {
	over := 150.0
	primary := &fakeAnalyzer{name: "primary", configured: true,
		outcome: &models.AnalysisOutcome{
			Success:    true,
			Kind:       models.KindSentiment,
			Sentiment:  &models.SentimentResult{Sentiment: models.SentimentPositive, Confidence: 150.0},
			Message:    "done",
			Confidence: &over,
		}}
	svc := newService(primary, nil)

	outcome := svc.Analyze(models.AnalysisRequest{
		Text: "some reasonably long text for the orchestrator",
		Kind: models.KindSentiment,
	})

	require.True(t, outcome.Success)
	require.NotNil(t, outcome.Confidence)
	assert.Equal(t, 100.0, *outcome.Confidence)
	assert.Equal(t, 100.0, outcome.Sentiment.Confidence)
}

func TestAnalyzeRecoversFromProviderPanic(t *testing.T) {
	primary := &fakeAnalyzer{name: "primary", configured: true, panicWith: "boom"}
	fallback := &fakeAnalyzer{name: "fallback", configured: true,
		outcome: successOutcome(models.KindSummarize, 70)}
	svc := newService(primary, fallback)

	var outcome *models.AnalysisOutcome
	assert.NotPanics(t, func() {
		outcome = svc.Analyze(models.AnalysisRequest{
			Text: "some reasonably long text for the orchestrator",
			Kind: models.KindSummarize,
		})
	})

	require.True(t, outcome.Success, "panic in primary must trigger the fallback")
	assert.Equal(t, 1, fallback.calls)
}

func TestAnalyzeRecoversPanicWithoutFallback(t *testing.T) {
	primary := &fakeAnalyzer{name: "primary", configured: true, panicWith: "boom"}
	svc := newService(primary, nil)

	outcome := svc.Analyze(models.AnalysisRequest{
		Text: "some reasonably long text for the orchestrator",
		Kind: models.KindSummarize,
	})

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Message, "boom")
}
