package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"8080"`

	// JWT-Konfiguration für Login-Tokens
	JWTSecretKey       string `envconfig:"JWT_SECRET_KEY" default:"your-secret-key-change-in-production"`
	TokenExpiryMinutes int    `envconfig:"TOKEN_EXPIRY_MINUTES" default:"30"`

	// OCR.space API für Texterkennung. Ohne Key ist die Extraktion deaktiviert.
	OCRSpaceAPIKey string `envconfig:"OCR_SPACE_API_KEY"`
	OCRSpaceURL    string `envconfig:"OCR_SPACE_URL" default:"https://api.ocr.space/parse/image"`
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`

	// Cohere ist der bevorzugte Analyse-Provider, Hugging Face der Fallback.
	// Fehlende Keys deaktivieren den jeweiligen Provider, der Start schlägt nie fehl.
	CohereAPIKey  string `envconfig:"COHERE_API_KEY"`
	CohereBaseURL string `envconfig:"COHERE_BASE_URL" default:"https://api.cohere.ai/v1"`

	HuggingFaceAPIToken string `envconfig:"HUGGING_FACE_API_TOKEN"`
	HuggingFaceBaseURL  string `envconfig:"HUGGING_FACE_BASE_URL" default:"https://api-inference.huggingface.co/models"`
	HFSummarizeModel    string `envconfig:"HF_SUMMARIZE_MODEL" default:"facebook/bart-large-cnn"`
	HFQuestionModel     string `envconfig:"HF_QUESTION_MODEL" default:"deepset/roberta-base-squad2"`
	HFSentimentModel    string `envconfig:"HF_SENTIMENT_MODEL" default:"cardiffnlp/twitter-roberta-base-sentiment-latest"`

	// SMTP für Passwort-Reset-Mails
	SMTPServer   string `envconfig:"SMTP_SERVER" default:"smtp.gmail.com"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	FromEmail    string `envconfig:"FROM_EMAIL" default:"noreply@insightlens.com"`
	FrontendURL  string `envconfig:"FRONTEND_URL" default:"http://localhost:5173"`

	ResetTokenTTLMinutes int    `envconfig:"RESET_TOKEN_TTL_MINUTES" default:"60"`
	CleanupCronSchedule  string `envconfig:"CLEANUP_CRON_SCHEDULE" default:"0 * * * *"`

	// S3-Speicher für hochgeladene Bilder. Optional: ohne Zugangsdaten werden Bilder nicht abgelegt.
	S3Key    string `envconfig:"S3_KEY"`
	S3Secret string `envconfig:"S3_SECRET"`
	S3URL    string `envconfig:"S3_URL"`
	S3Region string `envconfig:"S3_REGION" default:"eu-central-1"`
	S3Bucket string `envconfig:"S3_BUCKET" default:"insight-lens"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// S3Enabled meldet, ob ein S3-Speicher konfiguriert ist.
func (c *Config) S3Enabled() bool {
	return c.S3URL != "" && c.S3Key != "" && c.S3Secret != ""
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
