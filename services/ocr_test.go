package services

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"insight-lens/config"
)

func testOCRService(url, apiKey string) *OCRService {
	cfg := &config.Config{OCRSpaceAPIKey: apiKey, OCRSpaceURL: url}
	logger := zap.NewNop()
	return NewOCRService(cfg, logger, NewTextNormalizer(logger))
}

func TestExtractTextCleansOCRArtifacts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		assert.Equal(t, "test-key", r.FormValue("apikey"))
		assert.Equal(t, "2", r.FormValue("OCREngine"))
		w.Write([]byte(`{"IsErroredOnProcessing":false,"ParsedResults":[{"ParsedText":"Invoice 2024\r\nInvoice 2024\r\nTotal:   42 EUR"}]}`))
	}))
	defer server.Close()

	result := testOCRService(server.URL, "test-key").ExtractTextFromImage([]byte("fake-image"), "scan.png")

	require.True(t, result.Success)
	assert.Equal(t, "Invoice 2024 Total: 42 EUR", result.Text)
}

func TestExtractTextJoinsMultiplePages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"IsErroredOnProcessing":false,"ParsedResults":[{"ParsedText":"page one text"},{"ParsedText":"page two text"}]}`))
	}))
	defer server.Close()

	result := testOCRService(server.URL, "test-key").ExtractTextFromImage([]byte("fake-image"), "scan.jpg")

	require.True(t, result.Success)
	assert.Equal(t, "page one text page two text", result.Text)
}

func TestExtractTextProcessingError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"IsErroredOnProcessing":true,"ErrorMessage":["File too blurry"]}`))
	}))
	defer server.Close()

	result := testOCRService(server.URL, "test-key").ExtractTextFromImage([]byte("fake-image"), "scan.png")

	require.False(t, result.Success)
	assert.Contains(t, result.Message, "OCR processing failed")
	assert.Contains(t, result.Message, "File too blurry")
}

func TestExtractTextNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"IsErroredOnProcessing":false,"ParsedResults":[]}`))
	}))
	defer server.Close()

	result := testOCRService(server.URL, "test-key").ExtractTextFromImage([]byte("fake-image"), "scan.png")

	require.False(t, result.Success)
	assert.Equal(t, "No text found in the image", result.Message)
}

func TestExtractTextWithoutAPIKey(t *testing.T) {
	result := testOCRService("http://unused", "").ExtractTextFromImage([]byte("fake-image"), "scan.png")

	require.False(t, result.Success)
	assert.Equal(t, "OCR API key not configured", result.Message)
}
