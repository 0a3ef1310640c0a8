// Package email sends notification emails.
//
// Services depend on the EmailSender interface; the Resend implementation is
// wired in main.go.
package email

import (
	"context"
	"fmt"
	"html"

	"github.com/resend/resend-go/v3"
)

// EmailSender sends a new-message notification by email.
type EmailSender interface {
	SendNotification(ctx context.Context, msg Message) error
}

// Message is one notification email.
type Message struct {
	To      string
	Subject string
	Title   string // heading, e.g. "Nuevo mensaje"
	Body    string // "{number}: {text}"
	Footer  string
}

// resendSender is the EmailSender backed by the Resend API.
type resendSender struct {
	client    *resend.Client
	fromEmail string // e.g. "ConectaBot <noreply@conectabot.org>"
}

// NewResendSender creates an EmailSender for a Resend API key (re_xxxxxxxx).
// fromEmail must belong to a domain verified in Resend.
func NewResendSender(apiKey, fromEmail string) EmailSender {
	return &resendSender{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
	}
}

func (s *resendSender) SendNotification(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    RenderHTML(msg),
		Text:    msg.Body,
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}
	return nil
}

// RenderHTML builds the email body. Every field is HTML-escaped; message text
// comes from customers.
func RenderHTML(msg Message) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin:0;padding:0;background-color:#f0f2f5;font-family:Arial,Helvetica,sans-serif;">
  <table width="100%%" cellpadding="0" cellspacing="0" style="background-color:#f0f2f5;padding:32px 0;">
    <tr>
      <td align="center">
        <table width="480" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:8px;padding:32px;border-top:4px solid #25d366;">
          <tr>
            <td>
              <h2 style="color:#111b21;font-size:18px;margin:0 0 16px 0;">%s</h2>
              <p style="color:#3b4a54;font-size:15px;line-height:1.6;margin:0 0 24px 0;white-space:pre-wrap;">%s</p>
              <p style="color:#8696a0;font-size:13px;margin:0;">%s</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`, html.EscapeString(msg.Title), html.EscapeString(msg.Body), html.EscapeString(msg.Footer))
}
