package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"smtptester/internal/api/handler/middleware"
	"smtptester/internal/api/handler/request"
	"smtptester/internal/api/service"
	"smtptester/internal/metrics"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTransport struct {
	verifyErr error
	sendErr   error
	verifies  int
	sends     []service.TestMessage
}

func (s *stubTransport) VerifyConnection(context.Context, request.SmtpTestRequest) error {
	s.verifies++
	return s.verifyErr
}

func (s *stubTransport) SendTestMessage(_ context.Context, _ request.SmtpTestRequest, msg service.TestMessage) error {
	s.sends = append(s.sends, msg)
	return s.sendErr
}

type stubMailbox struct{ err error }

func (s stubMailbox) VerifyMailbox(context.Context, request.ImapTestRequest) error { return s.err }

func newTestRouter(t *testing.T, transport *stubTransport, mailbox stubMailbox) *gin.Engine {
	gin.SetMode(gin.TestMode)

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Cors([]string{"http://localhost:5173"}, zerolog.Nop(), m))
	SmtpTestHandler(router, service.NewSmtpTestService(transport, mailbox, m))
	HealthHandler(router, m)
	return router
}

func post(router http.Handler, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const verifyOnly = `{"host":"smtp.example.com","port":587,"secure":false,"auth":{"user":"u","pass":"p"}}`

func TestTestSmtp_VerifyOnly(t *testing.T) {
	transport := &stubTransport{}
	router := newTestRouter(t, transport, stubMailbox{})

	rec := post(router, "/api/test-smtp", verifyOnly, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"result":"SMTP connection verified successfully."}`, rec.Body.String())
	assert.Equal(t, 1, transport.verifies)
	assert.Empty(t, transport.sends)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestTestSmtp_VerifyAndSend(t *testing.T) {
	transport := &stubTransport{}
	router := newTestRouter(t, transport, stubMailbox{})

	body := `{"host":"smtp.example.com","port":587,"secure":false,"auth":{"user":"u","pass":"p"},"from":"a@example.com","to":"b@example.com"}`
	rec := post(router, "/api/test-smtp", body, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"result":"SMTP verified and test email sent."}`, rec.Body.String())
	require.Len(t, transport.sends, 1)
	assert.Equal(t, "SMTP Test", transport.sends[0].Subject)
}

func TestTestSmtp_MissingHost(t *testing.T) {
	transport := &stubTransport{}
	router := newTestRouter(t, transport, stubMailbox{})

	rec := post(router, "/api/test-smtp", `{"port":587,"secure":false,"auth":{"user":"u","pass":"p"}}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var got struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Details struct {
			FormErrors  []string            `json:"formErrors"`
			FieldErrors map[string][]string `json:"fieldErrors"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.Success)
	assert.Equal(t, "Invalid input", got.Error)
	assert.Equal(t, map[string][]string{"host": {"Required"}}, got.Details.FieldErrors)
	assert.Zero(t, transport.verifies, "Transport must not be reached on invalid input")
}

func TestTestSmtp_BodyTooLarge(t *testing.T) {
	transport := &stubTransport{}
	router := newTestRouter(t, transport, stubMailbox{})

	host := strings.Repeat("a", maxBodyBytes)
	body := `{"host":"` + host + `","port":587,"secure":false,"auth":{"user":"u","pass":"p"}}`
	rec := post(router, "/api/test-smtp", body, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t,
		`{"success":false,"error":"Invalid input","details":{"formErrors":["Request body too large"],"fieldErrors":{}}}`,
		rec.Body.String())
	assert.Zero(t, transport.verifies)

	rec = post(router, "/api/test-imap", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTestSmtp_VerifyFailure(t *testing.T) {
	transport := &stubTransport{verifyErr: errors.New("dial tcp: lookup smtp.example.com: no such host")}
	router := newTestRouter(t, transport, stubMailbox{})

	rec := post(router, "/api/test-smtp", verifyOnly, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"dial tcp: lookup smtp.example.com: no such host"}`, rec.Body.String())
}

func TestTestSmtp_SendFailure(t *testing.T) {
	transport := &stubTransport{sendErr: errors.New("550 5.1.1 recipient rejected")}
	router := newTestRouter(t, transport, stubMailbox{})

	body := `{"host":"h","port":25,"secure":false,"auth":{"user":"u","pass":"p"},"from":"a@example.com","to":"b@example.com"}`
	rec := post(router, "/api/test-smtp", body, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"550 5.1.1 recipient rejected"}`, rec.Body.String())
}

func TestTestSmtp_EmptyTransportMessage(t *testing.T) {
	transport := &stubTransport{verifyErr: errors.New("")}
	router := newTestRouter(t, transport, stubMailbox{})

	rec := post(router, "/api/test-smtp", verifyOnly, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"SMTP connection failed"}`, rec.Body.String())
}

func TestTestImap(t *testing.T) {
	router := newTestRouter(t, &stubTransport{}, stubMailbox{})
	rec := post(router, "/api/test-imap", `{"host":"imap.example.com","port":993,"secure":true,"auth":{"user":"u","pass":"p"}}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"result":"IMAP connection verified successfully."}`, rec.Body.String())

	router = newTestRouter(t, &stubTransport{}, stubMailbox{err: errors.New("IMAP login failed: NO")})
	rec = post(router, "/api/test-imap", `{"host":"imap.example.com","port":993,"secure":true,"auth":{"user":"u","pass":"p"}}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"IMAP login failed: NO"}`, rec.Body.String())
}

func TestTestSmtp_Cors(t *testing.T) {
	transport := &stubTransport{}
	router := newTestRouter(t, transport, stubMailbox{})

	rec := post(router, "/api/test-smtp", verifyOnly, map[string]string{"Origin": "http://localhost:5173"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = post(router, "/api/test-smtp", verifyOnly, map[string]string{"Origin": "https://evil.example"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 1, transport.verifies, "Rejected origins must not reach the handler")
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, &stubTransport{}, stubMailbox{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	post(router, "/api/test-smtp", `{}`, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `connection_tests_total{outcome="invalid",protocol="smtp"} 1`)
}
