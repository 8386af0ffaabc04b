package main

import (
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"insight-lens/config"
	"insight-lens/models"
	"insight-lens/providers"
	"insight-lens/providers/cohere"
	"insight-lens/providers/huggingface"
	"insight-lens/services"
	"insight-lens/storage"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	extractionsCounter prometheus.Counter
	analysesCounter    *prometheus.CounterVec
)

func init() {
	extractionsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "text_extractions_total",
			Help: "Total number of successful OCR text extractions.",
		},
	)
	analysesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyses_completed_total",
			Help: "Total number of completed text analyses by type.",
		},
		[]string{"analysis_type"},
	)
	prometheus.MustRegister(extractionsCounter, analysesCounter)
}

// authMiddleware prüft den Bearer-Token und legt den Benutzer in den Kontext.
func authMiddleware(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}
		user, err := auth.CurrentUser(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
			return
		}
		c.Set("user", user)
		c.Next()
	}
}

// currentUser holt den authentifizierten Benutzer aus dem Gin-Kontext.
func currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get("user"); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Database Connection
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to database.")

	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(
		&models.User{},
		&models.PasswordResetToken{},
		&models.Extraction{},
		&models.AnalysisRecord{},
	); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	// Setup Analyse-Provider. Cohere ist der bevorzugte Provider, Hugging Face
	// der Fallback. Fehlende Keys deaktivieren den Provider nur, der Start
	// schlägt deswegen nie fehl.
	primary := cohere.NewFetcher(cfg, logging)
	fallback := huggingface.NewFetcher(cfg, logging)
	for _, p := range []providers.Analyzer{primary, fallback} {
		if p.Configured() {
			logging.Info("Analyse-Provider aktiv", zap.String("provider", p.Name()))
		} else {
			logging.Warn("Analyse-Provider ohne Zugangsdaten, wird übersprungen", zap.String("provider", p.Name()))
		}
	}

	// Setup S3 (optional)
	var s3Client *awss3.Client
	if cfg.S3Enabled() {
		s3Client, err = storage.NewS3Client(cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		logging.Info("S3 image storage enabled", zap.String("bucket", cfg.S3Bucket))
	} else {
		logging.Warn("S3 not configured, uploaded images will not be stored")
	}

	// Setup Services
	normalizer := services.NewTextNormalizer(logging)
	analysisService := services.NewAnalysisService(logging, normalizer, primary, fallback)
	ocrService := services.NewOCRService(cfg, logging, normalizer)
	documentService := services.NewDocumentService(db, logging)
	mailer := services.NewMailer(cfg, logging)
	authService := services.NewAuthService(cfg, db, logging, mailer)

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "InsightLens API is running", "version": "1.0.0"})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "InsightLens API"})
	})

	requireAuth := authMiddleware(authService)

	setupAuthRoutes(router, authService, requireAuth, logging)

	api := router.Group("/api")
	api.Use(requireAuth)
	setupExtractionRoutes(api, cfg, ocrService, documentService, s3Client, logging)
	setupAnalysisRoutes(api, analysisService, documentService, logging)
	setupUserDataRoutes(api, documentService, logging)

	// Setup Cron: abgelaufene Reset-Tokens regelmäßig ausräumen
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.CleanupCronSchedule, func() {
		count, err := authService.PurgeExpiredResetTokens()
		if err != nil {
			logging.Error("Reset-Token-Cleanup failed", zap.Error(err))
		} else if count > 0 {
			logging.Info("Reset-Token-Cleanup completed", zap.Int64("purged", count))
		}
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

// setupAuthRoutes konfiguriert Registrierung, Login und Passwort-Reset.
func setupAuthRoutes(router *gin.Engine, auth *services.AuthService, requireAuth gin.HandlerFunc, log *zap.Logger) {
	rg := router.Group("/api/auth")

	rg.POST("/register", func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required,email"`
			FullName string `json:"full_name" binding:"required"`
			Password string `json:"password" binding:"required,min=8"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		user, err := auth.Register(req.Email, req.FullName, req.Password)
		if errors.Is(err, services.ErrEmailTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
			return
		}
		if err != nil {
			log.Error("Registration failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
			return
		}
		c.JSON(http.StatusOK, user)
	})

	rg.POST("/login", func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		user, err := auth.Authenticate(req.Email, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect email or password"})
			return
		}

		token, err := auth.CreateAccessToken(user.Email)
		if err != nil {
			log.Error("Token creation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer", "user": user})
	})

	rg.GET("/me", requireAuth, func(c *gin.Context) {
		c.JSON(http.StatusOK, currentUser(c))
	})

	rg.POST("/refresh", requireAuth, func(c *gin.Context) {
		user := currentUser(c)
		token, err := auth.CreateAccessToken(user.Email)
		if err != nil {
			log.Error("Token refresh failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Token refresh failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
	})

	rg.POST("/forgot-password", func(c *gin.Context) {
		var req struct {
			Email string `json:"email" binding:"required,email"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		if err := auth.ForgotPassword(req.Email); err != nil {
			log.Error("Forgot-password failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not process request"})
			return
		}
		// Bewusst dieselbe Antwort für bekannte und unbekannte Adressen
		c.JSON(http.StatusOK, gin.H{"message": "If the email exists, a reset link has been sent"})
	})

	rg.POST("/reset-password", func(c *gin.Context) {
		var req struct {
			Token    string `json:"token" binding:"required"`
			Password string `json:"password" binding:"required,min=8"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		if err := auth.ResetPassword(req.Token, req.Password); err != nil {
			if errors.Is(err, services.ErrInvalidResetToken) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired reset token"})
				return
			}
			log.Error("Password reset failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Password reset failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
	})
}

// setupExtractionRoutes konfiguriert den OCR-Upload-Endpunkt.
func setupExtractionRoutes(api *gin.RouterGroup, cfg *config.Config, ocr *services.OCRService, docs *services.DocumentService, s3Client *awss3.Client, log *zap.Logger) {
	api.POST("/extract-text", func(c *gin.Context) {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Image file is required"})
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type. Please upload an image file."})
			return
		}
		if header.Size > cfg.MaxUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File size too large. Maximum size is 10MB."})
			return
		}

		data, err := io.ReadAll(io.LimitReader(file, cfg.MaxUploadBytes+1))
		if err != nil || int64(len(data)) > cfg.MaxUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read uploaded file"})
			return
		}

		result := ocr.ExtractTextFromImage(data, header.Filename)
		if !result.Success {
			c.JSON(http.StatusUnprocessableEntity, result)
			return
		}
		extractionsCounter.Inc()

		// Bild-Upload und Dokument-Anlage sind Best-Effort: der extrahierte
		// Text geht auch dann zurück, wenn Speicher oder DB gerade ausfallen.
		var imageURL string
		if s3Client != nil {
			key := "images/" + uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
			imageURL, err = storage.UploadImage(s3Client, key, data, contentType, cfg)
			if err != nil {
				log.Warn("Image upload to S3 failed", zap.Error(err))
				imageURL = ""
			}
		}

		user := currentUser(c)
		extraction, err := docs.CreateExtraction(user.ID, result.Text, imageURL)
		if err != nil {
			log.Error("Failed to persist extraction document", zap.Error(err))
		} else {
			result.DocumentID = extraction.ID
			result.ImageURL = imageURL
		}

		c.JSON(http.StatusOK, result)
	})
}

// setupAnalysisRoutes konfiguriert die Analyse-Endpunkte.
func setupAnalysisRoutes(api *gin.RouterGroup, analysis *services.AnalysisService, docs *services.DocumentService, log *zap.Logger) {
	api.POST("/analyze", func(c *gin.Context) {
		var req models.AnalysisRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. 'text' and 'analysis_type' are required."})
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Text is required for analysis"})
			return
		}
		if req.Kind == models.KindQuestion && strings.TrimSpace(req.Prompt) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required for question analysis"})
			return
		}

		user := currentUser(c)
		log.Info("Starting text analysis",
			zap.String("analysis_type", string(req.Kind)),
			zap.String("user", user.Email),
			zap.Int("text_length", len(req.Text)))

		outcome := analysis.Analyze(req)
		if !outcome.Success {
			c.JSON(http.StatusUnprocessableEntity, outcome)
			return
		}
		analysesCounter.WithLabelValues(string(req.Kind)).Inc()

		// Best-Effort-Persistenz: ein Speicherfehler ändert nichts am Ergebnis
		if req.DocumentID != "" {
			if err := docs.AttachAnalysis(req.DocumentID, outcome, req.Prompt); err != nil {
				log.Error("Failed to store analysis result", zap.String("document_id", req.DocumentID), zap.Error(err))
			}
		}

		c.JSON(http.StatusOK, outcome)
	})

	api.GET("/analysis-types", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"analysis_types": []gin.H{
				{
					"type":        models.KindSummarize,
					"name":        "Text Summarization",
					"description": "Generate a concise summary of the extracted text",
					"model":       "cohere/summarize-xlarge",
				},
				{
					"type":        models.KindSentiment,
					"name":        "Sentiment Analysis",
					"description": "Analyze the emotional tone of the extracted text",
					"model":       "cohere/command",
				},
				{
					"type":        models.KindQuestion,
					"name":        "Question Answering",
					"description": "Answer questions about the extracted text",
					"model":       "cohere/command",
				},
			},
		})
	})

	api.GET("/analysis/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "analysis"})
	})
}

// setupUserDataRoutes konfiguriert die Endpunkte für gespeicherte Extraktionen.
func setupUserDataRoutes(api *gin.RouterGroup, docs *services.DocumentService, log *zap.Logger) {
	rg := api.Group("/user")

	rg.GET("/extractions", func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		user := currentUser(c)

		extractions, err := docs.ListForUser(user.ID, limit)
		if err != nil {
			log.Error("Failed to list extractions", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user extractions"})
			return
		}
		c.JSON(http.StatusOK, extractions)
	})

	rg.GET("/stats", func(c *gin.Context) {
		user := currentUser(c)

		stats, err := docs.UserStats(user.ID)
		if err != nil {
			log.Error("Failed to compute user stats", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user stats"})
			return
		}
		stats.UserEmail = user.Email
		stats.UserName = user.FullName
		c.JSON(http.StatusOK, stats)
	})

	rg.GET("/extractions/:id", func(c *gin.Context) {
		user := currentUser(c)

		extraction, err := docs.GetExtraction(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
			return
		}
		if extraction.UserID != user.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		c.JSON(http.StatusOK, extraction)
	})

	rg.DELETE("/extractions/:id", func(c *gin.Context) {
		user := currentUser(c)

		err := docs.DeleteExtraction(c.Param("id"), user.ID)
		if errors.Is(err, services.ErrNotOwner) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Document deleted"})
	})
}
