package models

// AnalysisKind bezeichnet die Art der Textanalyse.
type AnalysisKind string

const (
	KindSummarize AnalysisKind = "summarize"
	KindSentiment AnalysisKind = "sentiment"
	KindQuestion  AnalysisKind = "question"
)

// Sentiment-Labels, auf die jeder Provider seine eigene Skala abbildet.
const (
	SentimentPositive = "Positive"
	SentimentNeutral  = "Neutral"
	SentimentNegative = "Negative"
)

// AnswerNotFound ist die feste Antwort, wenn ein Provider keine Antwort im Kontext findet.
const AnswerNotFound = "Based on the provided text, I cannot find a specific answer to your question. The information may not be present in the extracted text."

// AnswerContextPrefix markiert Antworten, die ausschließlich aus dem extrahierten Text stammen.
const AnswerContextPrefix = "[Based on extracted text] "

var sentimentEmojis = map[string]string{
	SentimentPositive: "😊",
	SentimentNeutral:  "😐",
	SentimentNegative: "😞",
}

// SentimentEmoji gibt das Emoji für ein Sentiment-Label zurück.
func SentimentEmoji(sentiment string) string {
	if e, ok := sentimentEmojis[sentiment]; ok {
		return e
	}
	return sentimentEmojis[SentimentNeutral]
}

// AnalysisRequest ist der Request-Body für /api/analyze.
type AnalysisRequest struct {
	Text       string       `json:"text" binding:"required"`
	Kind       AnalysisKind `json:"analysis_type" binding:"required"`
	Prompt     string       `json:"prompt,omitempty"`
	DocumentID string       `json:"document_id,omitempty"`
}

// SummaryResult ist das Ergebnis einer Zusammenfassung.
type SummaryResult struct {
	Summary          string  `json:"summary"`
	OriginalLength   int     `json:"original_length"`
	SummaryLength    int     `json:"summary_length"`
	CompressionRatio float64 `json:"compression_ratio"`
}

// SentimentResult ist das Ergebnis einer Sentiment-Analyse.
type SentimentResult struct {
	Sentiment    string  `json:"sentiment"`
	Confidence   float64 `json:"confidence"`
	Emoji        string  `json:"emoji"`
	TextAnalyzed string  `json:"text_analyzed"`
	Analysis     string  `json:"analysis,omitempty"`
}

// AnswerResult ist das Ergebnis einer Frage-Antwort-Analyse.
type AnswerResult struct {
	Answer         string  `json:"answer"`
	Confidence     float64 `json:"confidence"`
	ContextPreview string  `json:"context_preview"`
	Question       string  `json:"question"`
	AnswerLength   int     `json:"answer_length"`
}

// AnalysisOutcome ist das normalisierte Ergebnis eines Analyse-Aufrufs,
// Erfolg wie Fehlschlag. Pro Kind ist genau eines der Result-Felder gesetzt,
// und nur wenn Success true ist.
type AnalysisOutcome struct {
	Success    bool             `json:"success"`
	Kind       AnalysisKind     `json:"analysis_type"`
	Summary    *SummaryResult   `json:"summary,omitempty"`
	Sentiment  *SentimentResult `json:"sentiment,omitempty"`
	Answer     *AnswerResult    `json:"answer,omitempty"`
	Message    string           `json:"message"`
	Confidence *float64         `json:"confidence,omitempty"`
	Provider   string           `json:"api_used,omitempty"`
}

// FailedOutcome baut ein Fehlschlag-Ergebnis ohne Payload.
func FailedOutcome(kind AnalysisKind, message string) *AnalysisOutcome {
	return &AnalysisOutcome{
		Success: false,
		Kind:    kind,
		Message: message,
	}
}

// TextExtractionResult ist das Ergebnis einer OCR-Extraktion.
type TextExtractionResult struct {
	Success    bool   `json:"success"`
	Text       string `json:"text"`
	Message    string `json:"message"`
	DocumentID string `json:"document_id,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
}
