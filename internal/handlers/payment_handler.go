package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/airportcar/internal/domain"
	"github.com/joshua-takyi/airportcar/internal/models"
	"github.com/joshua-takyi/airportcar/internal/payments"
	"github.com/joshua-takyi/airportcar/internal/services"
)

const maxWebhookBody = 64 << 10

type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (*payments.PaymentEvent, error)
}

// PaymentWebhook confirms bookings whose deposit checkout completed. Events
// that cannot be applied are acknowledged so the provider stops retrying;
// only store failures ask for a retry.
func PaymentWebhook(parser WebhookParser, b *services.BookingService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			badRequest(c, "invalid request payload")
			return
		}

		event, err := parser.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
		if err != nil {
			if errors.Is(err, payments.ErrInvalidSignature) {
				logger.Warn("rejected webhook", "error", err)
			}
			badRequest(c, "invalid webhook")
			return
		}

		if event.Type != payments.EventCheckoutCompleted || !event.Paid || event.BookingID == "" {
			c.JSON(http.StatusOK, models.SuccessResponse(nil, "ignored"))
			return
		}

		_, err = b.MarkDepositPaid(c.Request.Context(), event.BookingID, event.SessionID)
		switch {
		case err == nil:
			logger.Info("deposit paid", "booking_id", event.BookingID, "amount_cents", event.AmountCents)
		case domain.IsNotFound(err), domain.IsConflict(err):
			logger.Warn("deposit event not applied", "booking_id", event.BookingID, "error", err)
		default:
			_ = c.Error(err)
			res := models.ErrorResponse("Internal server error")
			res.RequestID = c.GetString("request_id")
			c.AbortWithStatusJSON(http.StatusInternalServerError, res)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "received"))
	}
}
