package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/donasi/internal/payment/adapters/midtrans"
)

const maxWebhookBody = 1 << 20

// @Summary      Midtrans Payment Notification
// @Description  Authenticated by the notification signature, not by a bearer token.
// @Description  Replays are acknowledged with duplicate=true. A settlement for a donation
// @Description  that already expired or failed is acknowledged with conflict=true and left
// @Description  for manual reconciliation.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Success      200  {object}  paymentdomain.Ack
// @Router       /api/midtrans/notification [post]
func (s *Server) MidtransNotification(c *gin.Context) {
	if !s.webhookLimiter.Allow(c.ClientIP()) {
		AbortWithError(c, ErrRateLimited)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ack, err := s.paymentSvc.IngestWebhook(c.Request.Context(), midtrans.Provider, payload, c.Request.Header)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ack})
}
