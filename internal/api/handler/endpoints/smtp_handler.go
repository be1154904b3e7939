package endpoints

import (
	"errors"
	"net/http"
	"smtptester"
	"smtptester/internal/api/handler/middleware"
	"smtptester/internal/api/handler/response"
	"smtptester/internal/api/service"
	"smtptester/pkg"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds a connection test body; real payloads are a few
// hundred bytes.
const maxBodyBytes = 16 << 10

type smtpTestHandler struct {
	smtpService *service.SmtpTestService
	logger      zerolog.Logger
}

func newSmtpTestHandler(smtpService *service.SmtpTestService) *smtpTestHandler {
	return &smtpTestHandler{
		smtpService: smtpService,
		logger:      smtptester.Logger,
	}
}

// SmtpTestHandler sets up the connection test routes
func SmtpTestHandler(router gin.IRouter, smtpService *service.SmtpTestService) {
	h := newSmtpTestHandler(smtpService)

	routes := router.Group("/api")
	{
		routes.POST("/test-smtp", h.testSmtp)
		routes.POST("/test-imap", h.testImap)
	}
}

func (slf *smtpTestHandler) testSmtp(c *gin.Context) {
	body, ok := slf.readBody(c)
	if !ok {
		return
	}

	result, err := slf.smtpService.HandleTestRequest(c.Request.Context(), body)
	if err != nil {
		slf.fail(c, err, "SMTP connection failed")
		return
	}

	c.JSON(http.StatusOK, response.Succeeded(result))
}

func (slf *smtpTestHandler) testImap(c *gin.Context) {
	body, ok := slf.readBody(c)
	if !ok {
		return
	}

	result, err := slf.smtpService.HandleImapTestRequest(c.Request.Context(), body)
	if err != nil {
		slf.fail(c, err, "IMAP connection failed")
		return
	}

	c.JSON(http.StatusOK, response.Succeeded(result))
}

// readBody reads at most maxBodyBytes of the request body. It answers the
// request itself and returns false when the body cannot be used.
func (slf *smtpTestHandler) readBody(c *gin.Context) ([]byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	body, err := c.GetRawData()
	if err == nil {
		return body, true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		slf.logger.Warn().Str("request_id", middleware.GetRequestID(c)).Int64("limit", tooLarge.Limit).Msg("Request body too large")
		c.JSON(http.StatusBadRequest, response.Invalid(&pkg.ValidationError{
			FormErrors:  []string{"Request body too large"},
			FieldErrors: map[string][]string{},
		}))
		return nil, false
	}
	slf.logger.Error().Err(err).Str("path", c.FullPath()).Msg("Failed to read request body")
	c.JSON(http.StatusBadRequest, response.Failed("Invalid input"))
	return nil, false
}

// fail maps the service error taxonomy onto the response. Validation errors
// are the caller's fault; everything else is reported as a server failure.
func (slf *smtpTestHandler) fail(c *gin.Context, err error, fallback string) {
	var verr *pkg.ValidationError
	if errors.As(err, &verr) {
		slf.logger.Debug().Str("request_id", middleware.GetRequestID(c)).Err(err).Msg("Rejected connection test input")
		c.JSON(http.StatusBadRequest, response.Invalid(verr))
		return
	}

	message := err.Error()
	if message == "" {
		message = fallback
	}
	c.JSON(http.StatusInternalServerError, response.Failed(message))
}
