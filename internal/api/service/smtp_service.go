package service

import (
	"context"
	"fmt"
	"smtptester"
	"smtptester/internal/api/handler/request"
	"smtptester/internal/metrics"

	"github.com/rs/zerolog"
)

const (
	TestSubject = "SMTP Test"
	TestBody    = "This is a test email from your SMTP configuration."

	ResultVerified     = "SMTP connection verified successfully."
	ResultSent         = "SMTP verified and test email sent."
	ResultImapVerified = "IMAP connection verified successfully."
)

// Transport is the mail-transport capability the tests run against.
type Transport interface {
	VerifyConnection(ctx context.Context, cfg request.SmtpTestRequest) error
	SendTestMessage(ctx context.Context, cfg request.SmtpTestRequest, msg TestMessage) error
}

type MailboxVerifier interface {
	VerifyMailbox(ctx context.Context, cfg request.ImapTestRequest) error
}

// SmtpTestService runs one connection test per call. It holds no per-call
// state, so a single instance serves concurrent requests.
type SmtpTestService struct {
	logger    zerolog.Logger
	transport Transport
	mailbox   MailboxVerifier
	metrics   *metrics.Metrics
}

func NewSmtpTestService(transport Transport, mailbox MailboxVerifier, m *metrics.Metrics) *SmtpTestService {
	return &SmtpTestService{
		logger:    smtptester.Logger,
		transport: transport,
		mailbox:   mailbox,
		metrics:   m,
	}
}

// HandleTestRequest validates rawBody, verifies the connection and, when both
// from and to are given, sends the test message. Errors are
// *pkg.ValidationError, *ConnectionError or *SendError.
func (s *SmtpTestService) HandleTestRequest(ctx context.Context, rawBody []byte) (string, error) {
	req, verr := request.ParseSmtpTest(rawBody)
	if verr != nil {
		s.metrics.ObserveTest("smtp", metrics.OutcomeInvalid)
		return "", verr
	}

	log := s.logger.With().Str("host", req.Host).Int("port", req.Port).Bool("secure", req.Secure).Logger()

	if err := guard(func() error { return s.transport.VerifyConnection(ctx, req) }); err != nil {
		s.metrics.ObserveTest("smtp", metrics.OutcomeConnectionError)
		log.Error().Err(err).Msg("SMTP verification failed")
		return "", &ConnectionError{Err: err}
	}

	if !req.WantsSend() {
		if req.From != nil || req.To != nil {
			log.Warn().Msg("Only one of from/to given, skipping test email")
		}
		s.metrics.ObserveTest("smtp", metrics.OutcomeVerified)
		return ResultVerified, nil
	}

	msg := TestMessage{
		From:    *req.From,
		To:      *req.To,
		Subject: TestSubject,
		Body:    TestBody,
	}
	if err := guard(func() error { return s.transport.SendTestMessage(ctx, req, msg) }); err != nil {
		s.metrics.ObserveTest("smtp", metrics.OutcomeSendError)
		log.Error().Err(err).Str("to", msg.To).Msg("SMTP test email failed")
		return "", &SendError{Err: err}
	}

	s.metrics.ObserveTest("smtp", metrics.OutcomeSent)
	return ResultSent, nil
}

// HandleImapTestRequest validates rawBody and logs in to the IMAP server.
func (s *SmtpTestService) HandleImapTestRequest(ctx context.Context, rawBody []byte) (string, error) {
	req, verr := request.ParseImapTest(rawBody)
	if verr != nil {
		s.metrics.ObserveTest("imap", metrics.OutcomeInvalid)
		return "", verr
	}

	if err := guard(func() error { return s.mailbox.VerifyMailbox(ctx, req) }); err != nil {
		s.metrics.ObserveTest("imap", metrics.OutcomeConnectionError)
		s.logger.Error().Err(err).Str("host", req.Host).Int("port", req.Port).Msg("IMAP verification failed")
		return "", &ConnectionError{Err: err}
	}

	s.metrics.ObserveTest("imap", metrics.OutcomeVerified)
	return ResultImapVerified, nil
}

// guard turns a panic inside fn into an error carrying the panic value.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return fn()
}
