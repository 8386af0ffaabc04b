package huggingface

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

// Grenzen pro Analyse-Art. Die Inference-Modelle sind leichtgewichtig,
// daher deutlich kleinere Limits als bei Cohere.
const (
	minSummarizeChars  = 20
	maxSummarizeChars  = 2000
	minSentimentChars  = 5
	maxSentimentChars  = 512
	minQuestionChars   = 10
	maxQuestionChars   = 1000
	minMeaningfulWords = 5
)

// labelMapping übersetzt die rohen Modell-Labels auf unsere Sentiment-Taxonomie.
// Unbekannte Labels fallen auf Neutral zurück.
var labelMapping = map[string]string{
	"LABEL_0": models.SentimentNegative,
	"LABEL_1": models.SentimentNeutral,
	"LABEL_2": models.SentimentPositive,
}

// Fetcher implementiert das Analyzer-Interface für die Hugging Face Inference API.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher erstellt einen neuen Hugging Face Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return "huggingface"
}

// Configured meldet, ob ein API-Token vorhanden ist.
func (f *Fetcher) Configured() bool {
	return f.Config.HuggingFaceAPIToken != ""
}

// Analyze führt die Analyse für die gegebene Art aus.
func (f *Fetcher) Analyze(kind models.AnalysisKind, text, prompt string) *models.AnalysisOutcome {
	switch kind {
	case models.KindSummarize:
		return f.summarize(text)
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

// summarize fasst den Text mit dem BART-Modell zusammen.
func (f *Fetcher) summarize(text string) *models.AnalysisOutcome {
	log := f.Logger.With(zap.String("provider", f.Name()), zap.String("model", f.Config.HFSummarizeModel))

	if len(text) < minSummarizeChars {
		return models.FailedOutcome(models.KindSummarize, "Insufficient text for summarization")
	}
	if utf8.RuneCountInString(text) > maxSummarizeChars {
		text = truncateRunes(text, maxSummarizeChars) + "..."
	}

	payload := summarizeRequest{
		Inputs: text,
		Parameters: summarizeParameters{
			MaxLength:         150,
			MinLength:         30,
			DoSample:          false,
			NumBeams:          4,
			EarlyStopping:     true,
			LengthPenalty:     2.0,
			NoRepeatNgramSize: 3,
		},
	}

	log.Debug("Starte Summarization", zap.Int("text_length", len(text)))

	body, err := f.post(f.Config.HFSummarizeModel, payload)
	if err != nil {
		log.Warn("Summarization-Anfrage fehlgeschlagen", zap.Error(err))
		return models.FailedOutcome(models.KindSummarize, fmt.Sprintf("Network error during summarization: %s", err))
	}

	var results []summaryResponse
	if err := json.Unmarshal(body, &results); err != nil || len(results) == 0 {
		return models.FailedOutcome(models.KindSummarize, "Failed to generate summary - no results returned")
	}

	summary := strings.TrimSpace(results[0].SummaryText)
	if summary == "" {
		return models.FailedOutcome(models.KindSummarize, "Generated summary is empty")
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
		Message: "Text summarized successfully",
	}
}

// analyzeSentiment bestimmt das Sentiment mit dem RoBERTa-Modell.
func (f *Fetcher) analyzeSentiment(text string) *models.AnalysisOutcome {
	log := f.Logger.With(zap.String("provider", f.Name()), zap.String("model", f.Config.HFSentimentModel))

	if len(text) < minSentimentChars {
		return models.FailedOutcome(models.KindSentiment, "Insufficient text for sentiment analysis")
	}
	if utf8.RuneCountInString(text) > maxSentimentChars {
		text = truncateRunes(text, maxSentimentChars)
	}

	log.Debug("Starte Sentiment-Analyse", zap.Int("text_length", len(text)))

	body, err := f.post(f.Config.HFSentimentModel, sentimentRequest{Inputs: text})
	if err != nil {
		log.Warn("Sentiment-Anfrage fehlgeschlagen", zap.Error(err))
		return models.FailedOutcome(models.KindSentiment, fmt.Sprintf("Network error during sentiment analysis: %s", err))
	}

	scores := decodeLabelScores(body)
	if len(scores) == 0 {
		return models.FailedOutcome(models.KindSentiment, "Failed to analyze sentiment - no results returned")
	}

	best := scores[0]
	for _, s := range scores[1:] {
		if s.Score > best.Score {
			best = s
		}
	}

	sentiment, ok := labelMapping[best.Label]
	if !ok {
		sentiment = models.SentimentNeutral
	}
	confidence := math.Min(round1(best.Score*100), 100.0)

	return &models.AnalysisOutcome{
		Success: true,
		Kind:    models.KindSentiment,
		Sentiment: &models.SentimentResult{
			Sentiment:    sentiment,
			Confidence:   confidence,
			Emoji:        models.SentimentEmoji(sentiment),
			TextAnalyzed: excerpt(text, 100),
		},
		Message:    "Sentiment analyzed successfully",
		Confidence: &confidence,
	}
}

// answerQuestion beantwortet eine Frage zum Kontext mit dem SQuAD-Modell.
func (f *Fetcher) answerQuestion(context, question string) *models.AnalysisOutcome {
	log := f.Logger.With(zap.String("provider", f.Name()), zap.String("model", f.Config.HFQuestionModel))

	if len(context) < minQuestionChars {
		return models.FailedOutcome(models.KindQuestion, "Insufficient text extracted from image to answer questions. Please ensure the image contains readable text.")
	}
	if countMeaningfulWords(context) < minMeaningfulWords {
		return models.FailedOutcome(models.KindQuestion, "Extracted text appears to be insufficient or contains mostly non-meaningful content. Please try with a clearer image.")
	}
	if utf8.RuneCountInString(context) > maxQuestionChars {
		context = truncateRunes(context, maxQuestionChars) + "..."
	}

	log.Debug("Starte Question Answering", zap.Int("context_length", len(context)))

	body, err := f.post(f.Config.HFQuestionModel, questionRequest{
		Inputs: questionInputs{Question: question, Context: context},
	})
	if err != nil {
		log.Warn("Question-Answering-Anfrage fehlgeschlagen", zap.Error(err))
		return models.FailedOutcome(models.KindQuestion, fmt.Sprintf("Network error during question answering: %s", err))
	}

	var result questionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return models.FailedOutcome(models.KindQuestion, "Invalid response format from question answering model")
	}

	answer := strings.TrimSpace(result.Answer)
	switch strings.ToLower(answer) {
	case "", "none", "null":
		answer = models.AnswerNotFound
	default:
		answer = models.AnswerContextPrefix + answer
	}

	confidence := round1(result.Score * 100)

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
		Message:    "Question answered successfully",
		Confidence: &confidence,
	}
}

// post schickt einen JSON-Request an das gegebene Modell und gibt den Body zurück.
func (f *Fetcher) post(model string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, f.Config.HuggingFaceBaseURL+"/"+model, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+f.Config.HuggingFaceAPIToken)
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
		return nil, fmt.Errorf("inference request failed with status %d: %s", resp.StatusCode, string(body))
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
