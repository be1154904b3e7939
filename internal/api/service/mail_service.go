package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"smtptester"
	"smtptester/internal/api/handler/request"
	"time"

	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/rs/zerolog"
	gomail "github.com/wneessen/go-mail"
)

// TestMessage is the fixed-content message sent when a test asks for delivery.
type TestMessage struct {
	From    string
	To      string
	Subject string
	Body    string
}

// MailService talks to real mail servers. Every call opens its own
// connection; nothing is pooled between calls.
type MailService struct {
	logger   zerolog.Logger
	timeout  time.Duration
	authType gomail.SMTPAuthType
	helo     string

	// tlsConfig overrides the default verification settings when set.
	tlsConfig *tls.Config
}

func NewMailService(cfg smtptester.SmtpConfig) *MailService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &MailService{
		logger:   smtptester.Logger,
		timeout:  timeout,
		authType: authType(cfg.AuthMechanism),
		helo:     cfg.HeloName,
	}
}

// authType maps the configured mechanism onto go-mail. Anything other than
// an explicit override picks the strongest mechanism the server advertises.
func authType(mechanism string) gomail.SMTPAuthType {
	switch mechanism {
	case "PLAIN":
		return gomail.SMTPAuthPlain
	case "LOGIN":
		return gomail.SMTPAuthLogin
	case "CRAM-MD5":
		return gomail.SMTPAuthCramMD5
	default:
		return gomail.SMTPAuthAutoDiscover
	}
}

// clientOptions maps the request onto go-mail options. secure selects
// implicit TLS; otherwise STARTTLS is used when the server offers it.
func (s *MailService) clientOptions(cfg request.SmtpTestRequest) []gomail.Option {
	opts := []gomail.Option{
		gomail.WithSMTPAuth(s.authType),
		gomail.WithUsername(cfg.Auth.User),
		gomail.WithPassword(cfg.Auth.Pass),
		gomail.WithTimeout(s.timeout),
	}
	if cfg.Secure {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	if s.tlsConfig != nil {
		tlsConfig := s.tlsConfig.Clone()
		tlsConfig.ServerName = cfg.Host
		opts = append(opts, gomail.WithTLSConfig(tlsConfig))
	}
	if s.helo != "" {
		opts = append(opts, gomail.WithHELO(s.helo))
	}
	return append(opts, gomail.WithPort(cfg.Port))
}

// VerifyConnection connects and authenticates, then hangs up.
func (s *MailService) VerifyConnection(ctx context.Context, cfg request.SmtpTestRequest) error {
	client, err := gomail.NewClient(cfg.Host, s.clientOptions(cfg)...)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := client.DialWithContext(ctx); err != nil {
		return err
	}
	if err := client.Close(); err != nil {
		s.logger.Debug().Err(err).Str("host", cfg.Host).Msg("SMTP close after verification failed")
	}

	s.logger.Debug().Str("host", cfg.Host).Int("port", cfg.Port).Bool("secure", cfg.Secure).Msg("SMTP connection verified")
	return nil
}

// SendTestMessage dials a connection equivalent to VerifyConnection's and
// delivers msg over it.
func (s *MailService) SendTestMessage(ctx context.Context, cfg request.SmtpTestRequest, msg TestMessage) error {
	m := gomail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return fmt.Errorf("failed to set from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("failed to set to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)

	client, err := gomail.NewClient(cfg.Host, s.clientOptions(cfg)...)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return err
	}

	s.logger.Info().Str("host", cfg.Host).Str("to", msg.To).Str("subject", msg.Subject).Msg("Test email sent")
	return nil
}

// VerifyMailbox logs in to an IMAP server. secure selects implicit TLS.
func (s *MailService) VerifyMailbox(ctx context.Context, cfg request.ImapTestRequest) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	var client *imapclient.Client
	var err error
	if cfg.Secure {
		client, err = imapclient.DialTLS(addr, &imapclient.Options{
			TLSConfig: &tls.Config{ServerName: cfg.Host},
		})
	} else {
		client, err = imapclient.DialInsecure(addr, nil)
	}
	if err != nil {
		return fmt.Errorf("IMAP connection failed: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	// imapclient has no context support; closing the connection unblocks Wait.
	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()

	if err := client.Login(cfg.Auth.User, cfg.Auth.Pass).Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("IMAP login aborted: %w", ctx.Err())
		}
		return fmt.Errorf("IMAP login failed: %w", err)
	}

	s.logger.Debug().Str("host", cfg.Host).Int("port", cfg.Port).Bool("secure", cfg.Secure).Msg("IMAP login verified")
	return nil
}
