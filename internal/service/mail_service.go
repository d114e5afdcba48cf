package service

import (
	"context"
	"edu_platform_backend/internal/config"
	"edu_platform_backend/pkg/logger"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// Mailer 发送纯文本邮件
type Mailer interface {
	Send(ctx context.Context, toName, toEmail, subject, body string) error
}

// NewMailer 未配置 SendGrid 时退化为只写日志
func NewMailer(cfg *config.MailConfig) Mailer {
	if cfg.SendGridAPIKey == "" || cfg.FromEmail == "" {
		return LogMailer{}
	}
	return &SendGridMailer{
		key:  cfg.SendGridAPIKey,
		from: sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
	}
}

type SendGridMailer struct {
	key  string
	from *sgmail.Email
}

func (m *SendGridMailer) Send(ctx context.Context, toName, toEmail, subject, body string) error {
	message := sgmail.NewSingleEmail(m.from, subject, sgmail.NewEmail(toName, toEmail), body, "")

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(message)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, toName, toEmail, subject, body string) error {
	logger.Log.Info("Mail (not sent, sendgrid disabled)",
		zap.String("to", toEmail),
		zap.String("subject", subject),
	)
	return nil
}
