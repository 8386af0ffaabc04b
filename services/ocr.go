package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"insight-lens/config"
	"insight-lens/models"
)

// OCR.space braucht bei großen Bildern spürbar länger als die Analyse-APIs.
var ocrClient = &http.Client{Timeout: 60 * time.Second}

// ocrResponse repräsentiert die JSON-Antwort der OCR.space API.
type ocrResponse struct {
	IsErroredOnProcessing bool        `json:"IsErroredOnProcessing"`
	ErrorMessage          interface{} `json:"ErrorMessage"`
	ParsedResults         []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
}

// OCRService extrahiert Text aus Bildern über die OCR.space API.
type OCRService struct {
	Config     *config.Config
	Logger     *zap.Logger
	Normalizer *TextNormalizer
}

// NewOCRService erstellt einen neuen OCRService.
func NewOCRService(cfg *config.Config, logger *zap.Logger, normalizer *TextNormalizer) *OCRService {
	return &OCRService{Config: cfg, Logger: logger, Normalizer: normalizer}
}

// Configured meldet, ob ein OCR API-Key vorhanden ist.
func (s *OCRService) Configured() bool {
	return s.Config.OCRSpaceAPIKey != ""
}

// ExtractTextFromImage schickt das Bild an OCR.space und gibt den bereinigten
// Text zurück. Remote-Fehler werden wie bei den Analyse-Providern in ein
// Ergebnis mit Success=false übersetzt.
func (s *OCRService) ExtractTextFromImage(imageData []byte, filename string) *models.TextExtractionResult {
	log := s.Logger.With(zap.String("filename", filename), zap.Int("size_bytes", len(imageData)))

	if !s.Configured() {
		return &models.TextExtractionResult{Success: false, Message: "OCR API key not configured"}
	}

	body, contentType, err := s.buildRequestBody(imageData, filename)
	if err != nil {
		log.Error("Konnte OCR-Request nicht bauen", zap.Error(err))
		return &models.TextExtractionResult{Success: false, Message: fmt.Sprintf("Unexpected error: %s", err)}
	}

	log.Info("Starte OCR-Extraktion.")

	resp, err := ocrClient.Post(s.Config.OCRSpaceURL, contentType, body)
	if err != nil {
		log.Warn("OCR-Anfrage fehlgeschlagen", zap.Error(err))
		return &models.TextExtractionResult{Success: false, Message: fmt.Sprintf("Network error: %s", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn("OCR-API hat nicht-200-Status zurückgegeben", zap.Int("status", resp.StatusCode))
		return &models.TextExtractionResult{Success: false, Message: fmt.Sprintf("OCR request failed with status %d", resp.StatusCode)}
	}

	var result ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return &models.TextExtractionResult{Success: false, Message: "Invalid response from OCR service"}
	}

	if result.IsErroredOnProcessing {
		msg := "Unknown OCR error"
		if result.ErrorMessage != nil {
			msg = fmt.Sprintf("%v", result.ErrorMessage)
		}
		log.Warn("OCR-Verarbeitung fehlgeschlagen", zap.String("error", msg))
		return &models.TextExtractionResult{Success: false, Message: fmt.Sprintf("OCR processing failed: %s", msg)}
	}

	if len(result.ParsedResults) == 0 {
		return &models.TextExtractionResult{Success: false, Message: "No text found in the image"}
	}

	var parts []string
	for _, parsed := range result.ParsedResults {
		parts = append(parts, parsed.ParsedText)
	}
	extracted := strings.TrimSpace(strings.Join(parts, "\n"))
	if extracted == "" {
		return &models.TextExtractionResult{Success: false, Message: "No text could be extracted from the image"}
	}

	cleaned := s.Normalizer.CleanOCRText(extracted)
	log.Info("OCR-Extraktion abgeschlossen", zap.Int("raw_chars", len(extracted)), zap.Int("cleaned_chars", len(cleaned)))

	return &models.TextExtractionResult{
		Success: true,
		Text:    cleaned,
		Message: "Text extracted and cleaned successfully",
	}
}

// buildRequestBody baut den multipart-Body für den OCR.space Upload.
func (s *OCRService) buildRequestBody(imageData []byte, filename string) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	fields := map[string]string{
		"apikey":            s.Config.OCRSpaceAPIKey,
		"language":          "eng",
		"isOverlayRequired": "false",
		"filetype":          fileExtension(filename),
		"detectOrientation": "true",
		"scale":             "true",
		"OCREngine":         "2",
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return buf, writer.FormDataContentType(), nil
}

// fileExtension gibt die Dateiendung ohne Punkt zurück.
func fileExtension(filename string) string {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		return "png"
	}
	return strings.ToLower(ext)
}
