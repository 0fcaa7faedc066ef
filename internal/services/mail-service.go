package services

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"log"
	"net"
	"net/smtp"
	"path/filepath"
	"strings"
	"time"
)

// MailService renders mail templates and delivers them over SMTP with
// STARTTLS. It sits behind the mail topic consumer.
type MailService struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	mailFrom     string
	mailFromName string
	templateDir  string
}

func NewMailService(smtpHost, smtpPort, smtpUser, smtpPassword, mailFrom, mailFromName, templateDir string) *MailService {
	return &MailService{
		smtpHost:     smtpHost,
		smtpPort:     smtpPort,
		smtpUser:     smtpUser,
		smtpPassword: smtpPassword,
		mailFrom:     mailFrom,
		mailFromName: mailFromName,
		templateDir:  templateDir,
	}
}

func (s *MailService) SendVerifyEmail(to, username, code string) error {
	return s.send(to, "Verify your email", "verify-email.html", map[string]string{
		"Username": username,
		"Code":     code,
	})
}

func (s *MailService) SendEmailChangeEmail(to, username, code string) error {
	return s.send(to, "Confirm your new email address", "change-email.html", map[string]string{
		"Username": username,
		"Code":     code,
	})
}

func (s *MailService) SendPasswordResetEmail(to, username, code string) error {
	return s.send(to, "Reset your password", "reset-password.html", map[string]string{
		"Username": username,
		"Code":     code,
	})
}

func (s *MailService) SendNewPasswordEmail(to, username, password string) error {
	return s.send(to, "Your new password", "new-password.html", map[string]string{
		"Username": username,
		"Password": password,
	})
}

func (s *MailService) send(to, subject, templateName string, data map[string]string) error {
	htmlBody, err := s.render(templateName, data)
	if err != nil {
		return err
	}

	fromHeader := fmt.Sprintf("%s <%s>", s.mailFromName, s.mailFrom)

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", fromHeader),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		htmlBody,
	}, "\r\n")

	log.Printf("[MAIL] smtp sending to=%s via=%s:%s", to, s.smtpHost, s.smtpPort)

	if err := s.sendSMTPWithTimeout(to, []byte(msg)); err != nil {
		return err
	}

	log.Printf("[MAIL] sent to=%s", to)
	return nil
}

func (s *MailService) render(name string, data map[string]string) (string, error) {
	tmpl, err := template.ParseFiles(filepath.Join(s.templateDir, name))
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *MailService) sendSMTPWithTimeout(to string, msg []byte) error {
	addr := net.JoinHostPort(s.smtpHost, s.smtpPort)

	conn, err := net.DialTimeout("tcp", addr, 8*time.Second)
	if err != nil {
		return err
	}
	// Deadline covers the whole SMTP conversation.
	_ = conn.SetDeadline(time.Now().Add(15 * time.Second))

	c, err := smtp.NewClient(conn, s.smtpHost)
	if err != nil {
		return err
	}
	defer func() { _ = c.Quit() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.smtpHost}); err != nil {
			return err
		}
	}

	if s.smtpUser != "" {
		auth := smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)
		if err := c.Auth(auth); err != nil {
			return err
		}
	}

	if err := c.Mail(s.mailFrom); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
