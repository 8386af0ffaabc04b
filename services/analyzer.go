package services

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"insight-lens/models"
	"insight-lens/providers"
)

// AnalysisService orchestriert die Analyse über die konfigurierten Provider:
// Validierung, Primary-Aufruf, Fallback bei Fehlschlag, abschließende
// Normalisierung des Ergebnisses. Die Provider selbst kennen keine
// Fallback-Logik. Zustand über einen Request hinaus gibt es nicht, die
// Instanz ist nach der Konstruktion unveränderlich und nebenläufig nutzbar.
type AnalysisService struct {
	Logger     *zap.Logger
	Normalizer *TextNormalizer
	Primary    providers.Analyzer
	Fallback   providers.Analyzer
}

// NewAnalysisService erstellt eine neue Instanz des AnalysisService.
func NewAnalysisService(logger *zap.Logger, normalizer *TextNormalizer, primary, fallback providers.Analyzer) *AnalysisService {
	return &AnalysisService{
		Logger:     logger,
		Normalizer: normalizer,
		Primary:    primary,
		Fallback:   fallback,
	}
}

// Analyze validiert den Request, ruft die Provider in Reihenfolge auf und
// gibt das zuletzt erzielte Ergebnis zurück. Unkonfigurierte Provider werden
// übersprungen, fehlgeschlagene nicht wiederholt. Validierungsfehler kommen
// ohne jeden Netzwerkaufruf zurück.
func (s *AnalysisService) Analyze(req models.AnalysisRequest) *models.AnalysisOutcome {
	cleaned := s.Normalizer.CleanOCRText(req.Text)
	if cleaned == "" {
		return models.FailedOutcome(req.Kind, "No meaningful text found after cleaning")
	}

	switch req.Kind {
	case models.KindSummarize, models.KindSentiment, models.KindQuestion:
	default:
		return models.FailedOutcome(req.Kind, fmt.Sprintf("Unknown analysis type: %s", req.Kind))
	}

	if req.Kind == models.KindQuestion && strings.TrimSpace(req.Prompt) == "" {
		return models.FailedOutcome(req.Kind, "Prompt is required for question analysis")
	}

	var outcome *models.AnalysisOutcome
	for _, provider := range []providers.Analyzer{s.Primary, s.Fallback} {
		if provider == nil {
			continue
		}
		if !provider.Configured() {
			s.Logger.Debug("Provider nicht konfiguriert, wird übersprungen",
				zap.String("provider", provider.Name()))
			continue
		}

		outcome = s.safeAnalyze(provider, req.Kind, cleaned, req.Prompt)
		if outcome.Success {
			break
		}
		s.Logger.Warn("Provider-Analyse fehlgeschlagen",
			zap.String("provider", provider.Name()),
			zap.String("analysis_type", string(req.Kind)),
			zap.String("message", outcome.Message))
	}

	if outcome == nil {
		return models.FailedOutcome(req.Kind, "No analysis provider configured")
	}
	return finalizeOutcome(outcome)
}

// safeAnalyze ruft einen Provider auf und fängt Panics an der
// Orchestrator-Grenze ab, damit kein Adapter-Fehler zum Aufrufer durchschlägt.
func (s *AnalysisService) safeAnalyze(provider providers.Analyzer, kind models.AnalysisKind, text, prompt string) (outcome *models.AnalysisOutcome) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("Provider-Panic abgefangen",
				zap.String("provider", provider.Name()),
				zap.Any("panic", r))
			outcome = models.FailedOutcome(kind, fmt.Sprintf("Analysis failed: %v", r))
		}
	}()

	outcome = provider.Analyze(kind, text, prompt)
	if outcome == nil {
		outcome = models.FailedOutcome(kind, fmt.Sprintf("Provider %s returned no result", provider.Name()))
	}
	return outcome
}

// finalizeOutcome kappt jede Confidence unbedingt bei 100. Jeder Provider
// berechnet seine Confidence selbst, keinem wird die Einhaltung der
// Vertragsgrenze geglaubt.
func finalizeOutcome(outcome *models.AnalysisOutcome) *models.AnalysisOutcome {
	if outcome.Confidence != nil && *outcome.Confidence > 100.0 {
		capped := 100.0
		outcome.Confidence = &capped
	}
	if outcome.Sentiment != nil && outcome.Sentiment.Confidence > 100.0 {
		outcome.Sentiment.Confidence = 100.0
	}
	if outcome.Answer != nil && outcome.Answer.Confidence > 100.0 {
		outcome.Answer.Confidence = 100.0
	}
	return outcome
}
