// Package email sends team invitations over SMTP.
package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

var ErrNotConfigured = errors.New("email not configured")

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	config Config
	auth   smtp.Auth
	send   sendFunc
}

func NewService(config Config) *Service {
	var a smtp.Auth
	if config.Username != "" {
		a = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &Service{config: config, auth: a, send: smtp.SendMail}
}

// IsConfigured reports whether host, port and sender are set.
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// Invitation is the content of a team invitation email.
type Invitation struct {
	CompanyName string
	InviterName string
	RoleName    string
	AcceptURL   string
}

// SendInvitation mails an invitation link to a prospective team member.
func (s *Service) SendInvitation(to string, inv Invitation) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	html, err := render(inv)
	if err != nil {
		return fmt.Errorf("render invitation: %w", err)
	}
	subject := fmt.Sprintf("You're invited to join %s's help center", inv.CompanyName)
	msg := s.message(to, subject, plainInvitation(inv), html)
	if err := s.send(s.config.Host+":"+s.config.Port, s.auth, s.config.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send invitation: %w", err)
	}
	return nil
}

func (s *Service) message(to, subject, text, html string) []byte {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}
	const boundary = "helpcenter-invite"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)
	fmt.Fprintf(&msg, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n\r\n", boundary, text)
	fmt.Fprintf(&msg, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n\r\n", boundary, html)
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)
	return msg.Bytes()
}

func plainInvitation(inv Invitation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s invited you to join %s as %s.\r\n", inv.InviterName, inv.CompanyName, inv.RoleName)
	fmt.Fprintf(&b, "Accept the invitation: %s\r\n", inv.AcceptURL)
	return b.String()
}

var invitationTemplate = template.Must(template.New("invite").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Join {{.CompanyName}}</title></head>
<body style="font-family: sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2>Join {{.CompanyName}}'s help center</h2>
  <p>{{.InviterName}} invited you to the team as <strong>{{.RoleName}}</strong>.</p>
  <p><a href="{{.AcceptURL}}" style="display: inline-block; padding: 12px 24px; background: #4f46e5; color: white; text-decoration: none; border-radius: 4px;">Accept invitation</a></p>
  <p>Or open this link: {{.AcceptURL}}</p>
  <p style="font-size: 12px; color: #666;">The invitation expires in 7 days. If you weren't expecting it, ignore this email.</p>
</body>
</html>`))

func render(inv Invitation) (string, error) {
	var buf bytes.Buffer
	if err := invitationTemplate.Execute(&buf, inv); err != nil {
		return "", err
	}
	return buf.String(), nil
}
