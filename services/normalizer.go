package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Typische Ligaturen aus OCR-Ausgaben. NFC lässt sie unangetastet,
// daher werden sie hier explizit ersetzt.
var ligatureReplacer = strings.NewReplacer(
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬀ", "ff",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
)

// TextNormalizer bereinigt rohen OCR-Text deterministisch: doppelte Zeilen,
// Rausch-Zeilen und überschüssiger Whitespace werden entfernt. Die Bereinigung
// ist idempotent: CleanOCRText(CleanOCRText(x)) == CleanOCRText(x).
type TextNormalizer struct {
	logger *zap.Logger
}

// NewTextNormalizer erstellt einen neuen TextNormalizer.
func NewTextNormalizer(logger *zap.Logger) *TextNormalizer {
	return &TextNormalizer{logger: logger}
}

// CleanOCRText bereinigt den rohen OCR-Text zu einem einzelnen Absatz.
// Zeilen unter zwei Zeichen gelten als OCR-Rauschen, wiederholte Zeilen
// (ein häufiges OCR-Artefakt) werden auf ihr erstes Vorkommen reduziert.
// Leerer oder reiner Rausch-Input ergibt den leeren String; der Aufrufer
// muss das als harten Validierungsfehler behandeln.
func (tn *TextNormalizer) CleanOCRText(raw string) string {
	if raw == "" {
		return ""
	}

	raw = ligatureReplacer.Replace(norm.NFC.String(raw))

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) > 1 {
			lines = append(lines, line)
		}
	}

	// Duplikate entfernen, Reihenfolge des ersten Vorkommens bleibt erhalten
	seen := make(map[string]bool, len(lines))
	var unique []string
	for _, line := range lines {
		if !seen[line] {
			unique = append(unique, line)
			seen[line] = true
		}
	}

	cleaned := whitespaceRegex.ReplaceAllString(strings.Join(unique, " "), " ")
	return strings.TrimSpace(cleaned)
}
