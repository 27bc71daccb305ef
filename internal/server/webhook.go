package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	webhookdomain "github.com/smallbiznis/familyhub/internal/webhook/domain"
	"go.uber.org/zap"
)

var errWebhookTooLarge = errors.New("webhook_payload_too_large")

const (
	headerWebhookSignature = "X-Signature"
	maxWebhookBodyBytes    = 1 << 20
)

// HandleWebhook answers the billing provider with the plain envelope it
// expects rather than the API error shape.
func (s *Server) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes+1))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Unreadable body"})
		return
	}
	if len(payload) > maxWebhookBodyBytes {
		_ = c.Error(errWebhookTooLarge)
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "Payload too large"})
		return
	}
	c.Set("event_name", webhookdomain.PeekEventName(payload))

	err = s.webhookSvc.HandleWebhook(c.Request.Context(), c.GetHeader(headerWebhookSignature), payload)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, webhookdomain.ErrMissingSignature):
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": webhookdomain.Message(err)})
	default:
		_ = c.Error(err)
		s.log.Warn("webhook rejected", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": webhookdomain.Message(err)})
	}
}
