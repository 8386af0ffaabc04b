package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestCleanOCRTextRemovesDuplicateLines(t *testing.T) {
	tn := NewTextNormalizer(zap.NewNop())

	raw := "INVOICE 2024\nTotal: 42.00 EUR\nINVOICE 2024\nThanks for your purchase"
	cleaned := tn.CleanOCRText(raw)

	assert.Equal(t, 1, strings.Count(cleaned, "INVOICE 2024"))
	assert.Contains(t, cleaned, "Total: 42.00 EUR")
	assert.Contains(t, cleaned, "Thanks for your purchase")
}

func TestCleanOCRTextDropsNoiseLines(t *testing.T) {
	tn := NewTextNormalizer(zap.NewNop())

	raw := "a\n|\nReal content line\n.\nx"
	assert.Equal(t, "Real content line", tn.CleanOCRText(raw))
}

func TestCleanOCRTextCollapsesWhitespace(t *testing.T) {
	tn := NewTextNormalizer(zap.NewNop())

	raw := "first   part\t\tof text\nsecond    part"
	cleaned := tn.CleanOCRText(raw)

	assert.NotContains(t, cleaned, "  ")
	assert.NotContains(t, cleaned, "\t")
	assert.Equal(t, "first part of text second part", cleaned)
}

func TestCleanOCRTextIdempotent(t *testing.T) {
	tn := NewTextNormalizer(zap.NewNop())

	inputs := []string{
		"",
		"single line",
		"line one\nline two\nline one",
		"  padded   line  \n\n\n  padded   line  ",
		"ümlauts and ﬁligree ligatures\nümlauts and ﬁligree ligatures",
		"a\nb\nc", // nur Rauschen
	}
	for _, raw := range inputs {
		once := tn.CleanOCRText(raw)
		assert.Equal(t, once, tn.CleanOCRText(once), "clean must be idempotent for %q", raw)
	}
}

func TestCleanOCRTextEmptyAndNoiseOnlyInput(t *testing.T) {
	tn := NewTextNormalizer(zap.NewNop())

	assert.Equal(t, "", tn.CleanOCRText(""))
	assert.Equal(t, "", tn.CleanOCRText("\n \n\t\n"))
	assert.Equal(t, "", tn.CleanOCRText("a\n.\n|\nb"))
}

func TestCleanOCRTextNoiseFilterCountsCharacters(t *testing.T) {
	tn := NewTextNormalizer(zap.NewNop())

	// Ein einzelnes Mehrbyte-Zeichen ist genauso Rauschen wie ein ASCII-Zeichen.
	assert.Equal(t, "", tn.CleanOCRText("é\nß\n☺"))
	assert.Equal(t, "éé", tn.CleanOCRText("é\néé"))
}

func TestCleanOCRTextResolvesLigatures(t *testing.T) {
	tn := NewTextNormalizer(zap.NewNop())

	assert.Equal(t, "the final offer", tn.CleanOCRText("the ﬁnal oﬀer"))
}
