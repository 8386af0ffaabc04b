// Package cohere enthält die Logik für die Interaktion mit der Cohere API.
package cohere

// summarizeRequest ist der Request-Body für den /summarize Endpunkt.
type summarizeRequest struct {
	Text              string `json:"text"`
	Length            string `json:"length"`
	Format            string `json:"format"`
	Model             string `json:"model"`
	AdditionalCommand string `json:"additional_command"`
}

// summarizeResponse ist die Antwort des /summarize Endpunkts.
type summarizeResponse struct {
	Summary string `json:"summary"`
}

// generateRequest ist der Request-Body für den /generate Endpunkt.
type generateRequest struct {
	Model             string   `json:"model"`
	Prompt            string   `json:"prompt"`
	MaxTokens         int      `json:"max_tokens"`
	Temperature       float64  `json:"temperature"`
	K                 int      `json:"k"`
	StopSequences     []string `json:"stop_sequences"`
	ReturnLikelihoods string   `json:"return_likelihoods"`
}

// generateResponse ist die Antwort des /generate Endpunkts.
type generateResponse struct {
	Generations []generation `json:"generations"`
}

type generation struct {
	Text string `json:"text"`
}
