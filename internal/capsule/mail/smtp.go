package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
)

//go:embed templates/*.html
var templateFS embed.FS

// SMTP delivers mail over a plain SMTP relay (typically a local MTA on
// port 25, matching the production deployment). It owns the two HTML
// templates compiled into the binary.
type SMTP struct {
	// Addr is the relay address, e.g. "localhost:25".
	Addr string
	// From is the envelope and header sender, e.g. "support@orino.tech".
	From string
	// BaseURL is the public origin links are built against,
	// e.g. "https://orino.tech".
	BaseURL string

	templates *template.Template
}

// NewSMTP parses the embedded templates and returns a ready dispatcher.
func NewSMTP(addr, from, baseURL string) (*SMTP, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse mail templates: %w", err)
	}
	return &SMTP{
		Addr:      addr,
		From:      from,
		BaseURL:   baseURL,
		templates: tmpl,
	}, nil
}

func (d *SMTP) SendVerificationEmail(ctx context.Context, email, username, token string) error {
	body, err := d.render("confirm_email.html", map[string]string{
		"Username":  username,
		"VerifyURL": d.BaseURL + "/v1/auth/verify/" + token,
	})
	if err != nil {
		return err
	}
	return d.send(email, "Verify Your Email", body)
}

func (d *SMTP) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	body, err := d.render("reset_password.html", map[string]string{
		"ResetURL": d.BaseURL + "/reset-password?token=" + token,
	})
	if err != nil {
		return err
	}
	return d.send(email, "Reset Your Password", body)
}

func (d *SMTP) render(name string, data map[string]string) (string, error) {
	var buf bytes.Buffer
	if err := d.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (d *SMTP) send(to, subject, htmlBody string) error {
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", d.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	if err := smtp.SendMail(d.Addr, nil, d.From, []string{to}, msg.Bytes()); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", to, err)
	}
	return nil
}
