package cohere

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"insight-lens/config"
	"insight-lens/models"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// Grenzen pro Analyse-Art. Cohere verarbeitet bis zu 100KB Text pro Aufruf.
const (
	minSummarizeChars  = 20
	minSentimentChars  = 5
	minQuestionChars   = 10
	maxTextChars       = 100000
	minMeaningfulWords = 5
)

// Heuristik-Konstanten für die Keyword-Sentiment-Erkennung. Der Generate-
// Endpunkt liefert keinen Score, daher feste Baseline-Werte statt eines
// echten Modell-Scores. Bewusst beibehalten, nicht "verbessern".
const (
	keywordHitConfidence = 85.0
	baselineConfidence   = 50.0
)

const defaultSummarizeCommand = "Create a clear, well-structured summary of the extracted text only. Focus on key points and main ideas from the provided content. Do not add any external information or assumptions."

// Fetcher implementiert das Analyzer-Interface für die Cohere API.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher erstellt einen neuen Cohere-Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return "cohere"
}

// Configured meldet, ob ein API-Key vorhanden ist.
func (f *Fetcher) Configured() bool {
	return f.Config.CohereAPIKey != ""
}

// Analyze führt die Analyse für die gegebene Art aus.
func (f *Fetcher) Analyze(kind models.AnalysisKind, text, prompt string) *models.AnalysisOutcome {
	if !f.Configured() {
		return models.FailedOutcome(kind, "Cohere API key not configured")
	}
	switch kind {
	case models.KindSummarize:
		return f.summarize(text, prompt)
	case models.KindSentiment:
		return f.analyzeSentiment(text)
	case models.KindQuestion:
		if prompt == "" {
			return models.FailedOutcome(kind, "Prompt is required for question analysis")
		}
		return f.answerQuestion(text, prompt)
	default:
		return models.FailedOutcome(kind, fmt.Sprintf("Unknown analysis type: %s", kind))
	}
}

// summarize fasst den Text über den Summarize-Endpunkt zusammen.
func (f *Fetcher) summarize(text, prompt string) *models.AnalysisOutcome {
	log := f.Logger.With(zap.String("provider", f.Name()))

	if len(text) < minSummarizeChars {
		return models.FailedOutcome(models.KindSummarize, "Insufficient text for summarization")
	}
	text = truncateRunes(text, maxTextChars)

	command := prompt
	if command == "" {
		command = defaultSummarizeCommand
	}

	log.Debug("Starte Cohere Summarization", zap.Int("text_length", len(text)))

	body, err := f.post("/summarize", summarizeRequest{
		Text:              text,
		Length:            "medium",
		Format:            "paragraph",
		Model:             "summarize-xlarge",
		AdditionalCommand: command,
	})
	if err != nil {
		log.Warn("Cohere Summarization fehlgeschlagen", zap.Error(err))
		return models.FailedOutcome(models.KindSummarize, fmt.Sprintf("Cohere network error: %s", err))
	}

	var result summarizeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return models.FailedOutcome(models.KindSummarize, "Invalid response format from Cohere")
	}

	summary := strings.TrimSpace(result.Summary)
	if summary == "" {
		return models.FailedOutcome(models.KindSummarize, "Cohere returned empty summary")
	}

	return &models.AnalysisOutcome{
		Success: true,
		Kind:    models.KindSummarize,
		Summary: &models.SummaryResult{
			Summary:          summary,
			OriginalLength:   len(text),
			SummaryLength:    len(summary),
			CompressionRatio: round1(float64(len(summary)) / float64(len(text)) * 100),
		},
		Message:  "Text summarized successfully using Cohere",
		Provider: "Cohere Summarize-XLarge",
	}
}

// analyzeSentiment lässt den Generate-Endpunkt eine kurze Analyse schreiben
// und liest das Sentiment per Keyword-Suche daraus ab. Das ist eine bekannte
// Näherung, kein bewertetes Modell.
func (f *Fetcher) analyzeSentiment(text string) *models.AnalysisOutcome {
	log := f.Logger.With(zap.String("provider", f.Name()))

	if len(text) < minSentimentChars {
		return models.FailedOutcome(models.KindSentiment, "Insufficient text for sentiment analysis")
	}
	text = truncateRunes(text, maxTextChars)

	prompt := fmt.Sprintf(`Analyze the sentiment of the following text and provide:
1. Overall sentiment (Positive/Negative/Neutral)
2. Confidence level (0-100%%)
3. Key emotional indicators

Text: %s

Analysis:`, text)

	log.Debug("Starte Cohere Sentiment-Analyse", zap.Int("text_length", len(text)))

	body, err := f.post("/generate", generateRequest{
		Model:             "command",
		Prompt:            prompt,
		MaxTokens:         150,
		Temperature:       0.1,
		K:                 0,
		StopSequences:     []string{},
		ReturnLikelihoods: "NONE",
	})
	if err != nil {
		log.Warn("Cohere Sentiment-Analyse fehlgeschlagen", zap.Error(err))
		return models.FailedOutcome(models.KindSentiment, fmt.Sprintf("Cohere network error: %s", err))
	}

	var result generateResponse
	if err := json.Unmarshal(body, &result); err != nil || len(result.Generations) == 0 {
		return models.FailedOutcome(models.KindSentiment, "Invalid response format from Cohere")
	}

	analysis := strings.TrimSpace(result.Generations[0].Text)

	sentiment := models.SentimentNeutral
	confidence := baselineConfidence
	lower := strings.ToLower(analysis)
	if strings.Contains(lower, "positive") {
		sentiment = models.SentimentPositive
		confidence = keywordHitConfidence
	} else if strings.Contains(lower, "negative") {
		sentiment = models.SentimentNegative
		confidence = keywordHitConfidence
	}
	confidence = math.Min(confidence, 100.0)

	return &models.AnalysisOutcome{
		Success: true,
		Kind:    models.KindSentiment,
		Sentiment: &models.SentimentResult{
			Sentiment:    sentiment,
			Confidence:   confidence,
			Emoji:        models.SentimentEmoji(sentiment),
			TextAnalyzed: excerpt(text, 100),
			Analysis:     analysis,
		},
		Message:    "Sentiment analyzed successfully using Cohere",
		Confidence: &confidence,
		Provider:   "Cohere Command",
	}
}

// answerQuestion beantwortet eine Frage strikt auf Basis des Kontexts.
func (f *Fetcher) answerQuestion(context, question string) *models.AnalysisOutcome {
	log := f.Logger.With(zap.String("provider", f.Name()))

	if len(context) < minQuestionChars {
		return models.FailedOutcome(models.KindQuestion, "Insufficient text extracted from image to answer questions. Please ensure the image contains readable text.")
	}
	if countMeaningfulWords(context) < minMeaningfulWords {
		return models.FailedOutcome(models.KindQuestion, "Extracted text appears to be insufficient or contains mostly non-meaningful content. Please try with a clearer image.")
	}
	context = truncateRunes(context, maxTextChars)

	prompt := fmt.Sprintf(`IMPORTANT: You must ONLY answer based on the information provided in the context below. Do NOT use any external knowledge or general information.

Context: %s

Question: %s

Instructions:
1. Answer ONLY using information from the provided context
2. If the answer is not explicitly mentioned in the context, respond with: %q
3. Do not make assumptions or provide general knowledge
4. Quote specific parts of the context when possible
5. If the context is unclear or insufficient, state that clearly

Answer:`, context, question, models.AnswerNotFound)

	log.Debug("Starte Cohere Question Answering", zap.Int("context_length", len(context)))

	body, err := f.post("/generate", generateRequest{
		Model:             "command",
		Prompt:            prompt,
		MaxTokens:         300,
		Temperature:       0.3,
		K:                 0,
		StopSequences:     []string{},
		ReturnLikelihoods: "NONE",
	})
	if err != nil {
		log.Warn("Cohere Question Answering fehlgeschlagen", zap.Error(err))
		return models.FailedOutcome(models.KindQuestion, fmt.Sprintf("Cohere network error: %s", err))
	}

	var result generateResponse
	if err := json.Unmarshal(body, &result); err != nil || len(result.Generations) == 0 {
		return models.FailedOutcome(models.KindQuestion, "Invalid response format from Cohere")
	}

	answer := strings.TrimSpace(result.Generations[0].Text)
	switch strings.ToLower(answer) {
	case "", "none", "null":
		answer = models.AnswerNotFound
	default:
		answer = models.AnswerContextPrefix + answer
	}

	// Generate liefert keinen Score, der Endpunkt antwortet erfahrungsgemäß
	// zuverlässig im Kontext, daher fester Wert.
	confidence := keywordHitConfidence

	return &models.AnalysisOutcome{
		Success: true,
		Kind:    models.KindQuestion,
		Answer: &models.AnswerResult{
			Answer:         answer,
			Confidence:     confidence,
			ContextPreview: excerpt(context, 300),
			Question:       question,
			AnswerLength:   len(answer),
		},
		Message:    "Question answered successfully using Cohere",
		Confidence: &confidence,
		Provider:   "Cohere Command",
	}
}

// post schickt einen JSON-Request an die Cohere API und gibt den Body zurück.
func (f *Fetcher) post(path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, f.Config.CohereBaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+f.Config.CohereAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cohere request failed with status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// countMeaningfulWords zählt Wörter mit mehr als zwei Zeichen.
func countMeaningfulWords(text string) int {
	count := 0
	for _, word := range strings.Fields(text) {
		if len(word) > 2 {
			count++
		}
	}
	return count
}

// truncateRunes kürzt den Text auf max Zeichen, ohne Mehrbyte-Zeichen zu
// zerschneiden. Die Limits zählen Zeichen, nicht Bytes.
func truncateRunes(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}

// excerpt kürzt einen Text auf max Zeichen und hängt eine Ellipse an.
func excerpt(text string, max int) string {
	if utf8.RuneCountInString(text) > max {
		return truncateRunes(text, max) + "..."
	}
	return text
}

// round1 rundet auf eine Nachkommastelle.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
