package models

import (
	"encoding/json"
	"time"
)

// Extraction repräsentiert ein Extraktionsdokument: der bereinigte OCR-Text
// eines hochgeladenen Bildes samt aller darauf ausgeführten Analysen.
// Die ID ist eine UUID, damit sie als opaque document_id nach außen gehen kann.
type Extraction struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`

	UserID        uint   `json:"user_id" gorm:"index;not null"`
	ImageURL      string `json:"image_url,omitempty"`
	ExtractedText string `json:"extracted_text" gorm:"type:text"`

	Analyses []AnalysisRecord `json:"analyses" gorm:"foreignKey:ExtractionID"`
}

// AnalysisRecord ist ein gespeichertes Analyse-Ergebnis zu einem Extraktionsdokument.
type AnalysisRecord struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"timestamp"`

	ExtractionID string         `json:"extraction_id" gorm:"index;not null"`
	Kind         AnalysisKind   `json:"type" gorm:"index"`
	Prompt       string         `json:"prompt,omitempty"`
	Result       json.RawMessage `json:"result" gorm:"type:jsonb"`
}
