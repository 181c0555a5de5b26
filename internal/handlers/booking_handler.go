package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/airportcar/internal/domain"
	"github.com/joshua-takyi/airportcar/internal/helpers"
	"github.com/joshua-takyi/airportcar/internal/models"
	"github.com/joshua-takyi/airportcar/internal/services"
)

// CalculateFare prices the route for the caller's booking form session,
// issuing the session cookie on first use.
func CalculateFare(b *services.BookingService, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Origin      string `json:"origin"`
			Destination string `json:"destination"`
		}
		if !bindJSON(c, &req) {
			return
		}

		sessionID := helpers.BookingSession(c, secureCookies)
		est, err := b.CalculateFare(c.Request.Context(), sessionID, req.Origin, req.Destination)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(est, "Fare calculated"))
	}
}

func Autocomplete(f *services.FareService) gin.HandlerFunc {
	return func(c *gin.Context) {
		predictions, err := f.Suggest(c.Request.Context(), c.Query("input"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(predictions, ""))
	}
}

func CreateBooking(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form services.BookingForm
		if !bindJSON(c, &form) {
			return
		}

		session := helpers.SessionFrom(c)
		res, err := b.SubmitBooking(c.Request.Context(), helpers.ExistingBookingSession(c), form, services.SubmitOptions{
			UserID: session.UserID,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(res, "Booking created successfully"))
	}
}

// accessibleBooking loads the booking named in the path and checks the
// caller may see it. Callers who may not are told it does not exist.
func accessibleBooking(c *gin.Context, b *services.BookingService) (*models.Booking, bool) {
	booking, err := b.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if !services.CanAccess(booking, helpers.SessionFrom(c), c.Query("email")) {
		respondError(c, domain.NotFoundError{Resource: "booking"})
		return nil, false
	}
	return booking, true
}

// manageableBooking is accessibleBooking for changes. Callers who may only
// view the booking get a 403.
func manageableBooking(c *gin.Context, b *services.BookingService) (*models.Booking, bool) {
	booking, ok := accessibleBooking(c, b)
	if !ok {
		return nil, false
	}
	if !services.CanManage(booking, helpers.SessionFrom(c)) {
		respondError(c, domain.ForbiddenError{Msg: "Sign in with the account used for this booking to change it."})
		return nil, false
	}
	return booking, true
}

func GetBooking(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		booking, ok := accessibleBooking(c, b)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(booking, ""))
	}
}

// GetBookingForm returns the booking form pre-filled for editing.
func GetBookingForm(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		booking, ok := accessibleBooking(c, b)
		if !ok {
			return
		}
		view, err := b.EditForm(c.Request.Context(), booking.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(view, ""))
	}
}

func UpdateBooking(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		booking, ok := manageableBooking(c, b)
		if !ok {
			return
		}
		var form services.BookingForm
		if !bindJSON(c, &form) {
			return
		}

		res, err := b.SubmitBooking(c.Request.Context(), helpers.ExistingBookingSession(c), form, services.SubmitOptions{
			EditID: booking.ID,
			UserID: booking.UserID,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(res, "Booking updated successfully"))
	}
}

func CancelBooking(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		booking, ok := manageableBooking(c, b)
		if !ok {
			return
		}
		cancelled, err := b.CancelBooking(c.Request.Context(), booking.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(cancelled, "Booking cancelled"))
	}
}

func DownloadReceipt(b *services.BookingService, r *services.ReceiptService) gin.HandlerFunc {
	return func(c *gin.Context) {
		booking, ok := accessibleBooking(c, b)
		if !ok {
			return
		}

		var buf bytes.Buffer
		if err := r.WriteReceipt(c.Request.Context(), booking, &buf); err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="receipt-%s.pdf"`, booking.ID))
		c.Data(http.StatusOK, "application/pdf", buf.Bytes())
	}
}

func SubmitFeedback(b *services.BookingService, f *services.FeedbackService) gin.HandlerFunc {
	return func(c *gin.Context) {
		booking, ok := accessibleBooking(c, b)
		if !ok {
			return
		}
		var req struct {
			Rating  int    `json:"rating"`
			Comment string `json:"comment"`
		}
		if !bindJSON(c, &req) {
			return
		}

		fb, err := f.SubmitFeedback(c.Request.Context(), booking.ID, req.Rating, req.Comment)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(fb, "Thank you for your feedback"))
	}
}
