package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"insight-lens/models"
)

// ErrNotOwner wird zurückgegeben, wenn ein Dokument einem anderen Benutzer gehört.
var ErrNotOwner = errors.New("document belongs to another user")

// DocumentService verwaltet Extraktionsdokumente und deren Analyse-Historie.
// Das Anhängen von Analyse-Ergebnissen ist Best-Effort: Fehler werden vom
// Aufrufer geloggt, nie in das Analyse-Ergebnis propagiert.
type DocumentService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewDocumentService erstellt einen neuen DocumentService.
func NewDocumentService(db *gorm.DB, logger *zap.Logger) *DocumentService {
	return &DocumentService{DB: db, Logger: logger}
}

// CreateExtraction legt ein neues Extraktionsdokument für einen Benutzer an.
func (d *DocumentService) CreateExtraction(userID uint, extractedText, imageURL string) (*models.Extraction, error) {
	extraction := &models.Extraction{
		ID:            uuid.NewString(),
		UserID:        userID,
		ImageURL:      imageURL,
		ExtractedText: extractedText,
	}
	if err := d.DB.Create(extraction).Error; err != nil {
		return nil, fmt.Errorf("fehler beim Anlegen des Extraktionsdokuments: %w", err)
	}

	d.Logger.Info("Extraktionsdokument angelegt",
		zap.String("document_id", extraction.ID),
		zap.Uint("user_id", userID))
	return extraction, nil
}

// AttachAnalysis hängt ein Analyse-Ergebnis an ein bestehendes Dokument an.
func (d *DocumentService) AttachAnalysis(documentID string, outcome *models.AnalysisOutcome, prompt string) error {
	var extraction models.Extraction
	if err := d.DB.First(&extraction, "id = ?", documentID).Error; err != nil {
		return fmt.Errorf("extraktionsdokument %s nicht gefunden: %w", documentID, err)
	}

	payload, err := json.Marshal(resultPayload(outcome))
	if err != nil {
		return fmt.Errorf("fehler beim Serialisieren des Analyse-Ergebnisses: %w", err)
	}

	record := models.AnalysisRecord{
		ExtractionID: documentID,
		Kind:         outcome.Kind,
		Prompt:       prompt,
		Result:       payload,
	}
	if err := d.DB.Create(&record).Error; err != nil {
		return fmt.Errorf("fehler beim Speichern des Analyse-Ergebnisses: %w", err)
	}

	d.Logger.Info("Analyse-Ergebnis gespeichert",
		zap.String("document_id", documentID),
		zap.String("analysis_type", string(outcome.Kind)))
	return nil
}

// GetExtraction lädt ein Dokument samt Analyse-Historie.
func (d *DocumentService) GetExtraction(documentID string) (*models.Extraction, error) {
	var extraction models.Extraction
	err := d.DB.Preload("Analyses").First(&extraction, "id = ?", documentID).Error
	if err != nil {
		return nil, err
	}
	return &extraction, nil
}

// ListForUser gibt die jüngsten Dokumente eines Benutzers zurück.
func (d *DocumentService) ListForUser(userID uint, limit int) ([]models.Extraction, error) {
	if limit <= 0 {
		limit = 20
	}
	var extractions []models.Extraction
	err := d.DB.Preload("Analyses").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&extractions).Error
	return extractions, err
}

// UserStats zählt Dokumente, Analysen und die Aktivität der letzten sieben
// Tage eines Benutzers. Die Identitätsfelder füllt der Aufrufer.
func (d *DocumentService) UserStats(userID uint) (*models.UserStats, error) {
	stats := &models.UserStats{UserID: userID}

	err := d.DB.Model(&models.Extraction{}).
		Where("user_id = ?", userID).
		Count(&stats.TotalExtractions).Error
	if err != nil {
		return nil, fmt.Errorf("fehler beim Zählen der Extraktionen: %w", err)
	}

	err = d.DB.Model(&models.AnalysisRecord{}).
		Joins("JOIN extractions ON extractions.id = analysis_records.extraction_id").
		Where("extractions.user_id = ?", userID).
		Count(&stats.TotalAnalyses).Error
	if err != nil {
		return nil, fmt.Errorf("fehler beim Zählen der Analysen: %w", err)
	}

	weekAgo := time.Now().UTC().AddDate(0, 0, -7)
	err = d.DB.Model(&models.Extraction{}).
		Where("user_id = ? AND created_at > ?", userID, weekAgo).
		Count(&stats.RecentExtractions).Error
	if err != nil {
		return nil, fmt.Errorf("fehler beim Zählen der jüngsten Extraktionen: %w", err)
	}

	return stats, nil
}

// DeleteExtraction löscht ein Dokument samt Analysen, sofern es dem Benutzer gehört.
func (d *DocumentService) DeleteExtraction(documentID string, userID uint) error {
	var extraction models.Extraction
	if err := d.DB.First(&extraction, "id = ?", documentID).Error; err != nil {
		return err
	}
	if extraction.UserID != userID {
		return ErrNotOwner
	}

	return d.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("extraction_id = ?", documentID).Delete(&models.AnalysisRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(&extraction).Error
	})
}

// resultPayload wählt die zum Kind gehörende Payload-Variante aus.
func resultPayload(outcome *models.AnalysisOutcome) any {
	switch {
	case outcome.Summary != nil:
		return outcome.Summary
	case outcome.Sentiment != nil:
		return outcome.Sentiment
	case outcome.Answer != nil:
		return outcome.Answer
	default:
		return nil
	}
}
