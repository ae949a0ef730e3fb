package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/wneessen/go-mail"
)

// SMTPConfig is read from SMTP_* environment variables.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPMailer delivers through an authenticated SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Channel() string { return "email" }

func (m *SMTPMailer) Deliver(ctx context.Context, to, subject, html string) error {
	c, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
	)
	if err != nil {
		return fmt.Errorf("init smtp client: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)

	return c.DialAndSendWithContext(ctx, msg)
}

// SESAPI is the part of the SES client the mailer uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer delivers through Amazon SES.
type SESMailer struct {
	Client SESAPI
	From   string
}

// NewSESMailer builds a client from the default AWS credential chain.
func NewSESMailer(ctx context.Context, from string) (*SESMailer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESMailer{Client: ses.NewFromConfig(cfg), From: from}, nil
}

func (m *SESMailer) Channel() string { return "ses" }

func (m *SESMailer) Deliver(ctx context.Context, to, subject, html string) error {
	out, err := m.Client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(m.From),
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(html), Charset: aws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return err
	}
	if out != nil && out.MessageId != nil {
		log.Printf("SES message id: %s", *out.MessageId)
	}
	return nil
}

// LogMailer only logs the message. Used when no mail transport is configured.
type LogMailer struct{}

func (LogMailer) Channel() string { return "log" }

func (LogMailer) Deliver(ctx context.Context, to, subject, html string) error {
	log.Println("------------------------------------------------")
	log.Printf("[MOCK EMAIL] To: %s", to)
	log.Printf("[MOCK EMAIL] Subject: %s", subject)
	log.Printf("[MOCK EMAIL] Body bytes: %d", len(strings.TrimSpace(html)))
	log.Println("------------------------------------------------")
	return nil
}
