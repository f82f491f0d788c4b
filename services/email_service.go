package services

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"campus-events-api/config"
)

type EmailService struct {
	cfg *config.Config
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{cfg: cfg}
}

func (s *EmailService) SendEmail(to []string, subject string, body string) error {
	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)

	msg := []byte("To: " + to[0] + "\r\n" +
		"From: " + s.cfg.SMTPFrom + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	tlsconfig := &tls.Config{
		ServerName: s.cfg.SMTPHost,
	}

	var client *smtp.Client
	if s.cfg.SMTPPort == 465 {
		// Implicit TLS
		conn, err := tls.Dial("tcp", addr, tlsconfig)
		if err != nil {
			return fmt.Errorf("TLS connection failed: %w", err)
		}
		defer conn.Close()
		client, err = smtp.NewClient(conn, s.cfg.SMTPHost)
		if err != nil {
			return fmt.Errorf("failed to create SMTP client: %w", err)
		}
	} else {
		// STARTTLS (usually port 587)
		c, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("SMTP connection failed: %w", err)
		}
		client = c
		if err = client.StartTLS(tlsconfig); err != nil {
			client.Close()
			return fmt.Errorf("STARTTLS command failed: %w", err)
		}
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err := client.Mail(s.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO failed: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close DATA: %w", err)
	}

	return nil
}

func (s *EmailService) GenerateEmailBody(templatePath string, data interface{}) (string, error) {
	t, err := template.ParseFiles(templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", templatePath, err)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templatePath, err)
	}

	return body.String(), nil
}

func (s *EmailService) SendWelcomeEmail(userEmail string, confirmationToken string) error {
	subject := "Welcome to CampusEvents!"
	templateData := struct {
		Email            string
		ConfirmationLink string
	}{
		Email:            userEmail,
		ConfirmationLink: fmt.Sprintf("%s/confirm-email?token=%s", s.cfg.PublicURL, confirmationToken),
	}

	htmlBody, err := s.GenerateEmailBody("templates/emails/welcome_email.html", templateData)
	if err != nil {
		return fmt.Errorf("failed to generate welcome email body: %w", err)
	}

	return s.SendEmail([]string{userEmail}, subject, htmlBody)
}

func (s *EmailService) SendPasswordResetEmail(userEmail string, resetToken string) error {
	subject := "Reset your CampusEvents password"
	templateData := struct {
		Email     string
		ResetLink string
	}{
		Email:     userEmail,
		ResetLink: fmt.Sprintf("%s/reset-password?token=%s", s.cfg.PublicURL, resetToken),
	}

	htmlBody, err := s.GenerateEmailBody("templates/emails/password_reset_email.html", templateData)
	if err != nil {
		return fmt.Errorf("failed to generate password reset email body: %w", err)
	}

	return s.SendEmail([]string{userEmail}, subject, htmlBody)
}

func (s *EmailService) SendRegistrationConfirmationEmail(userEmail, eventTitle, location string, startsAt time.Time) error {
	subject := fmt.Sprintf("You're registered for %s", eventTitle)
	data := struct {
		EventTitle string
		Location   string
		StartsAt   string
	}{
		EventTitle: eventTitle,
		Location:   location,
		StartsAt:   startsAt.Format("Monday, 2 January 2006, 15:04"),
	}
	htmlBody, err := s.GenerateEmailBody("templates/emails/registration_confirmation_email.html", data)
	if err != nil {
		return fmt.Errorf("failed to generate registration confirmation body: %w", err)
	}
	return s.SendEmail([]string{userEmail}, subject, htmlBody)
}

func (s *EmailService) SendOrganizerStatusEmail(userEmail string, approved bool) error {
	subject := "Your organizer request was reviewed"
	data := struct {
		Approved bool
	}{
		Approved: approved,
	}
	htmlBody, err := s.GenerateEmailBody("templates/emails/organizer_status_email.html", data)
	if err != nil {
		return fmt.Errorf("failed to generate organizer status body: %w", err)
	}
	return s.SendEmail([]string{userEmail}, subject, htmlBody)
}

func (s *EmailService) SendEventCanceledEmail(emails []string, eventTitle string) error {
	subject := fmt.Sprintf("Event canceled: %s", eventTitle)
	data := struct {
		EventTitle string
	}{
		EventTitle: eventTitle,
	}
	htmlBody, err := s.GenerateEmailBody("templates/emails/event_canceled_email.html", data)
	if err != nil {
		return fmt.Errorf("failed to generate event canceled body: %w", err)
	}
	for _, email := range emails {
		if err := s.SendEmail([]string{email}, subject, htmlBody); err != nil {
			return fmt.Errorf("failed to send cancellation email to %s: %w", email, err)
		}
	}
	return nil
}
