// Package huggingface enthält die Logik für die Interaktion mit der Hugging Face Inference API.
package huggingface

import (
	"encoding/json"
)

// summarizeRequest ist der Request-Body für das Summarization-Modell.
type summarizeRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters summarizeParameters `json:"parameters"`
}

// summarizeParameters steuern die Generierung der Zusammenfassung.
type summarizeParameters struct {
	MaxLength        int     `json:"max_length"`
	MinLength        int     `json:"min_length"`
	DoSample         bool    `json:"do_sample"`
	NumBeams         int     `json:"num_beams"`
	EarlyStopping    bool    `json:"early_stopping"`
	LengthPenalty    float64 `json:"length_penalty"`
	NoRepeatNgramSize int    `json:"no_repeat_ngram_size"`
}

// summaryResponse ist ein Element der Antwort-Liste des Summarization-Modells.
type summaryResponse struct {
	SummaryText string `json:"summary_text"`
}

// sentimentRequest ist der Request-Body für das Sentiment-Modell.
type sentimentRequest struct {
	Inputs string `json:"inputs"`
}

// labelScore ist ein einzelnes Label/Score-Paar aus der Sentiment-Antwort.
type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// questionRequest ist der Request-Body für das Question-Answering-Modell.
type questionRequest struct {
	Inputs questionInputs `json:"inputs"`
}

type questionInputs struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

// questionResponse ist die Antwort des Question-Answering-Modells.
type questionResponse struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
}

// decodeLabelScores parst die Sentiment-Antwort. Die Inference API liefert je
// nach Modell eine flache oder eine verschachtelte Liste von Label/Score-Paaren.
func decodeLabelScores(body []byte) []labelScore {
	var nested [][]labelScore
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 {
		return nested[0]
	}
	var flat []labelScore
	if err := json.Unmarshal(body, &flat); err == nil {
		return flat
	}
	return nil
}
