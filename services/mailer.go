package services

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"insight-lens/config"
)

// Mailer verschickt Passwort-Reset-Mails über SMTP.
type Mailer struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewMailer erstellt einen neuen Mailer.
func NewMailer(cfg *config.Config, logger *zap.Logger) *Mailer {
	return &Mailer{Config: cfg, Logger: logger}
}

// Enabled meldet, ob SMTP-Zugangsdaten konfiguriert sind.
func (m *Mailer) Enabled() bool {
	return m.Config.SMTPUsername != "" && m.Config.SMTPPassword != ""
}

// SendPasswordReset verschickt den Reset-Link an die gegebene Adresse.
func (m *Mailer) SendPasswordReset(to, token string) error {
	if !m.Enabled() {
		return errors.New("SMTP ist nicht konfiguriert")
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(m.Config.FrontendURL, "/"), token)

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", m.Config.FromEmail))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString("Subject: InsightLens Password Reset\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString("You requested a password reset for your InsightLens account.\r\n\r\n")
	msg.WriteString(fmt.Sprintf("Reset your password here: %s\r\n\r\n", resetLink))
	msg.WriteString(fmt.Sprintf("The link expires in %d minutes. If you did not request this, you can ignore this email.\r\n", m.Config.ResetTokenTTLMinutes))

	addr := fmt.Sprintf("%s:%d", m.Config.SMTPServer, m.Config.SMTPPort)
	auth := smtp.PlainAuth("", m.Config.SMTPUsername, m.Config.SMTPPassword, m.Config.SMTPServer)

	if err := smtp.SendMail(addr, auth, m.Config.FromEmail, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp-Versand fehlgeschlagen: %w", err)
	}

	m.Logger.Info("Passwort-Reset-Mail verschickt", zap.String("to", to))
	return nil
}
