package delivery

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends HTML email over SMTP.
type Mailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewMailer(cfg SMTPConfig) *Mailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return &Mailer{cfg: cfg, dialer: d}
}

func (m *Mailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return m.dialer.DialAndSend(msg)
}

type emailTemplate struct {
	subject string
	body    *template.Template
}

var emailTemplates = map[Template]emailTemplate{
	TemplateVerifyEmail: {
		subject: "Verify your email",
		body:    template.Must(template.New("verify").Parse(`<p>Hi {{.name}},</p><p>Open <a href="{{.link}}">this link</a> to verify your email address.</p>`)),
	},
	TemplatePasswordReset: {
		subject: "Reset your password",
		body:    template.Must(template.New("reset").Parse(`<p>Hi {{.name}},</p><p>Open <a href="{{.link}}">this link</a> to choose a new password. It expires in {{.expires_in}}.</p>`)),
	},
	TemplateChangeCode: {
		subject: "Your confirmation code",
		body:    template.Must(template.New("code").Parse(`<p>Hi {{.name}},</p><p>Your code to change your {{.field}} is <b style="font-size:18px;">{{.code}}</b>. It expires in {{.expires_in}}.</p>`)),
	},
}

// renderEmail builds subject and body for an email template.
func renderEmail(msg Message) (string, string, error) {
	tmpl, ok := emailTemplates[msg.Template]
	if !ok {
		return "", "", fmt.Errorf("no email template %q", msg.Template)
	}
	payload := msg.Payload
	if payload == nil {
		payload = map[string]string{}
	}
	var body bytes.Buffer
	if err := tmpl.body.Execute(&body, payload); err != nil {
		return "", "", fmt.Errorf("render %s: %w", msg.Template, err)
	}
	return tmpl.subject, body.String(), nil
}
