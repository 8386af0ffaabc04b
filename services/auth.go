package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"insight-lens/config"
	"insight-lens/models"
)

var (
	// ErrEmailTaken wird bei der Registrierung mit bereits vergebener E-Mail zurückgegeben.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials deckt falsches Passwort, unbekannte E-Mail und deaktivierte Konten ab.
	ErrInvalidCredentials = errors.New("incorrect email or password")
	// ErrInvalidResetToken deckt unbekannte, abgelaufene und bereits benutzte Reset-Tokens ab.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

// AuthService kümmert sich um Registrierung, Login, JWT-Tokens und Passwort-Reset.
type AuthService struct {
	Config *config.Config
	DB     *gorm.DB
	Logger *zap.Logger
	Mailer *Mailer
}

// NewAuthService erstellt einen neuen AuthService.
func NewAuthService(cfg *config.Config, db *gorm.DB, logger *zap.Logger, mailer *Mailer) *AuthService {
	return &AuthService{Config: cfg, DB: db, Logger: logger, Mailer: mailer}
}

// Register legt ein neues Benutzerkonto an.
func (a *AuthService) Register(email, fullName, password string) (*models.User, error) {
	var existing models.User
	if err := a.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("fehler beim Hashen des Passworts: %w", err)
	}

	user := &models.User{
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := a.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("fehler beim Anlegen des Benutzers: %w", err)
	}

	a.Logger.Info("Benutzer registriert", zap.String("email", email))
	return user, nil
}

// Authenticate prüft E-Mail und Passwort und aktualisiert den letzten Login.
func (a *AuthService) Authenticate(email, password string) (*models.User, error) {
	var user models.User
	if err := a.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	user.LastLogin = &now
	if err := a.DB.Model(&user).Update("last_login", now).Error; err != nil {
		a.Logger.Warn("Konnte letzten Login nicht aktualisieren", zap.Error(err))
	}

	return &user, nil
}

// CreateAccessToken erstellt ein signiertes JWT für die gegebene E-Mail.
func (a *AuthService) CreateAccessToken(email string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(a.Config.TokenExpiryMinutes) * time.Minute)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.Config.JWTSecretKey))
}

// VerifyToken prüft Signatur und Ablauf eines JWT und gibt die E-Mail zurück.
func (a *AuthService) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unerwartete Signatur-Methode: %v", t.Header["alg"])
		}
		return []byte(a.Config.JWTSecretKey), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("token ungültig: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("token ohne Subject")
	}
	return claims.Subject, nil
}

// CurrentUser löst ein JWT zum zugehörigen aktiven Benutzerkonto auf.
func (a *AuthService) CurrentUser(tokenString string) (*models.User, error) {
	email, err := a.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := a.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, errors.New("benutzerkonto ist deaktiviert")
	}
	return &user, nil
}

// ForgotPassword erstellt einen Reset-Token und verschickt ihn per Mail.
// Ob die E-Mail existiert, wird nach außen nicht verraten.
func (a *AuthService) ForgotPassword(email string) error {
	var user models.User
	if err := a.DB.Where("email = ?", email).First(&user).Error; err != nil {
		a.Logger.Debug("Passwort-Reset für unbekannte E-Mail angefragt", zap.String("email", email))
		return nil
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("fehler beim Erzeugen des Reset-Tokens: %w", err)
	}
	token := hex.EncodeToString(raw)

	reset := models.PasswordResetToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(time.Duration(a.Config.ResetTokenTTLMinutes) * time.Minute),
	}
	if err := a.DB.Create(&reset).Error; err != nil {
		return fmt.Errorf("fehler beim Speichern des Reset-Tokens: %w", err)
	}

	// Mailversand ist Best-Effort: ein SMTP-Ausfall darf den Endpunkt nicht brechen.
	if err := a.Mailer.SendPasswordReset(user.Email, token); err != nil {
		a.Logger.Warn("Konnte Passwort-Reset-Mail nicht verschicken",
			zap.String("email", user.Email), zap.Error(err))
	}
	return nil
}

// ResetPassword setzt das Passwort anhand eines gültigen Reset-Tokens neu.
func (a *AuthService) ResetPassword(token, newPassword string) error {
	var reset models.PasswordResetToken
	err := a.DB.Where("token = ? AND used = ? AND expires_at > ?", token, false, time.Now().UTC()).
		First(&reset).Error
	if err != nil {
		return ErrInvalidResetToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("fehler beim Hashen des Passworts: %w", err)
	}

	return a.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", reset.UserID).
			Update("password_hash", string(hash)).Error; err != nil {
			return err
		}
		return tx.Model(&reset).Update("used", true).Error
	})
}

// PurgeExpiredResetTokens löscht abgelaufene und benutzte Reset-Tokens.
func (a *AuthService) PurgeExpiredResetTokens() (int64, error) {
	result := a.DB.Where("expires_at < ? OR used = ?", time.Now().UTC(), true).
		Delete(&models.PasswordResetToken{})
	return result.RowsAffected, result.Error
}
