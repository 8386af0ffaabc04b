package cohere

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"insight-lens/config"
	"insight-lens/models"
)

const questionContext = "The warranty covers all manufacturing defects for a period of two years after purchase."

func testFetcher(baseURL string) *Fetcher {
	return NewFetcher(&config.Config{
		CohereAPIKey:  "test-key",
		CohereBaseURL: baseURL,
	}, zap.NewNop())
}

func generateServer(t *testing.T, generatedText string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"generations":[{"text":` + jsonString(generatedText) + `}]}`))
	}))
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestNotConfigured(t *testing.T) {
	fetcher := NewFetcher(&config.Config{CohereBaseURL: "http://unused"}, zap.NewNop())

	assert.False(t, fetcher.Configured())

	outcome := fetcher.Analyze(models.KindSummarize, "a sufficiently long input text for a summary", "")
	require.False(t, outcome.Success)
	assert.Equal(t, "Cohere API key not configured", outcome.Message)
}

func TestSentimentKeywordPositive(t *testing.T) {
	server := generateServer(t, "Overall sentiment: Positive\nConfidence: high\nIndicators: joy, praise")
	defer server.Close()

	outcome := testFetcher(server.URL).Analyze(models.KindSentiment, "the product exceeded my expectations", "")

	require.True(t, outcome.Success)
	require.NotNil(t, outcome.Sentiment)
	assert.Equal(t, models.SentimentPositive, outcome.Sentiment.Sentiment)
	assert.Equal(t, keywordHitConfidence, outcome.Sentiment.Confidence)
	assert.Equal(t, "😊", outcome.Sentiment.Emoji)
}

func TestSentimentKeywordNegative(t *testing.T) {
	server := generateServer(t, "The text expresses a clearly negative tone.")
	defer server.Close()

	outcome := testFetcher(server.URL).Analyze(models.KindSentiment, "the delivery was late and the item broken", "")

	require.True(t, outcome.Success)
	assert.Equal(t, models.SentimentNegative, outcome.Sentiment.Sentiment)
	assert.Equal(t, keywordHitConfidence, outcome.Sentiment.Confidence)
	assert.Equal(t, "😞", outcome.Sentiment.Emoji)
}

func TestSentimentNoKeywordDefaultsToNeutralBaseline(t *testing.T) {
	server := generateServer(t, "The text is a factual description of a delivery process.")
	defer server.Close()

	outcome := testFetcher(server.URL).Analyze(models.KindSentiment, "the package arrived on tuesday morning", "")

	require.True(t, outcome.Success)
	assert.Equal(t, models.SentimentNeutral, outcome.Sentiment.Sentiment)
	assert.Equal(t, baselineConfidence, outcome.Sentiment.Confidence)
	assert.Equal(t, "😐", outcome.Sentiment.Emoji)
}

func TestSentimentInsufficientText(t *testing.T) {
	outcome := testFetcher("http://unused").Analyze(models.KindSentiment, "ok", "")

	require.False(t, outcome.Success)
	assert.Equal(t, "Insufficient text for sentiment analysis", outcome.Message)
}

func TestSentimentOversizedTextTruncatedRuneSafe(t *testing.T) {
	var received generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Write([]byte(`{"generations":[{"text":"Neutral tone."}]}`))
	}))
	defer server.Close()

	// 120000 Bytes aus Dreibyte-Zeichen: eine Byte-Kappung bei 100000 würde
	// mitten in einer Rune schneiden und ungültiges UTF-8 in den Prompt heben.
	text := strings.Repeat("☺", 40000)
	outcome := testFetcher(server.URL).Analyze(models.KindSentiment, text, "")

	require.True(t, outcome.Success)
	assert.True(t, utf8.ValidString(received.Prompt))
	assert.True(t, utf8.ValidString(outcome.Sentiment.TextAnalyzed))
}

func TestSummarizeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/summarize", r.URL.Path)
		w.Write([]byte(`{"summary":"A compact summary of the text."}`))
	}))
	defer server.Close()

	text := "This is a sufficiently long input text that Cohere can summarize into a much shorter paragraph."
	outcome := testFetcher(server.URL).Analyze(models.KindSummarize, text, "")

	require.True(t, outcome.Success)
	require.NotNil(t, outcome.Summary)
	assert.Equal(t, "A compact summary of the text.", outcome.Summary.Summary)
	assert.Equal(t, "Cohere Summarize-XLarge", outcome.Provider)
}

func TestSummarizeEmptySummaryIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"summary":"  "}`))
	}))
	defer server.Close()

	outcome := testFetcher(server.URL).Analyze(models.KindSummarize, "a sufficiently long input text for a summary", "")

	require.False(t, outcome.Success)
	assert.Equal(t, "Cohere returned empty summary", outcome.Message)
}

func TestQuestionAnswerPrefixed(t *testing.T) {
	server := generateServer(t, "The warranty lasts two years.")
	defer server.Close()

	outcome := testFetcher(server.URL).Analyze(models.KindQuestion, questionContext, "How long is the warranty?")

	require.True(t, outcome.Success)
	require.NotNil(t, outcome.Answer)
	assert.Equal(t, models.AnswerContextPrefix+"The warranty lasts two years.", outcome.Answer.Answer)
	assert.Equal(t, keywordHitConfidence, outcome.Answer.Confidence)
	assert.Equal(t, "Cohere Command", outcome.Provider)
}

func TestQuestionEmptyAnswerSubstituted(t *testing.T) {
	server := generateServer(t, "none")
	defer server.Close()

	outcome := testFetcher(server.URL).Analyze(models.KindQuestion, questionContext, "What color is the product?")

	require.True(t, outcome.Success)
	assert.Equal(t, models.AnswerNotFound, outcome.Answer.Answer)
}

func TestQuestionNetworkErrorIsFailureOutcome(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	outcome := testFetcher(server.URL).Analyze(models.KindQuestion, questionContext, "How long is the warranty?")

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Message, "Cohere network error")
	assert.Nil(t, outcome.Answer)
}
