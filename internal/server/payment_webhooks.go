package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxWebhookBodyBytes = 1 << 20

// HandleStripeWebhook verifies and applies one provider event. Redeliveries and
// ignored event types answer 200 so the provider stops retrying.
func (s *Server) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			AbortWithError(c, newValidationError("payload", "payload_too_large", "payload too large"))
			return
		}
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.paymentSvc.IngestWebhook(c.Request.Context(), payload, c.Request.Header)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received":  true,
		"event_id":  result.EventID,
		"duplicate": result.Duplicate,
		"ignored":   result.Ignored,
	})
}
