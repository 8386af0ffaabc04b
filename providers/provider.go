package providers

import "insight-lens/models"

// Analyzer ist das Interface, das jeder Analyse-Provider (z.B. Cohere, Hugging Face)
// implementieren muss. Analyze wirft keine Fehler für gewöhnliche Remote-Probleme:
// Netzwerkfehler, Timeouts und leere Antworten werden in ein Outcome mit
// Success=false übersetzt. Fallback-Logik lebt im Orchestrator, nicht hier.
type Analyzer interface {
	// Analyze führt eine Analyse des gegebenen (bereits bereinigten) Textes aus.
	Analyze(kind models.AnalysisKind, text, prompt string) *models.AnalysisOutcome

	// Name gibt den eindeutigen Namen des Providers zurück (z.B. "cohere").
	Name() string

	// Configured meldet, ob die nötigen Zugangsdaten vorhanden sind.
	// Ein unkonfigurierter Provider wird vom Orchestrator übersprungen.
	Configured() bool
}
