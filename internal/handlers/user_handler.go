package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joshua-takyi/airportcar/internal/helpers"
	"github.com/joshua-takyi/airportcar/internal/models"
	"github.com/joshua-takyi/airportcar/internal/services"
)

// sessionUser parses the caller's id from the session. RequireAuth runs
// first, so a malformed id means the token itself was bad.
func sessionUser(c *gin.Context) (*helpers.SessionState, uuid.UUID, bool) {
	session := helpers.SessionFrom(c)
	id, err := uuid.Parse(session.UserID)
	if err != nil {
		res := models.ErrorResponse("Unauthorized")
		res.RequestID = c.GetString("request_id")
		c.AbortWithStatusJSON(http.StatusUnauthorized, res)
		return nil, uuid.Nil, false
	}
	return session, id, true
}

func Me(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, id, ok := sessionUser(c)
		if !ok {
			return
		}
		user, err := u.GetUser(c.Request.Context(), id, session.AccessToken)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(user, ""))
	}
}

func UpdateMe(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, id, ok := sessionUser(c)
		if !ok {
			return
		}
		var fields map[string]interface{}
		if !bindJSON(c, &fields) {
			return
		}

		user, err := u.UpdateProfile(c.Request.Context(), fields, id, session.AccessToken)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(user, "Profile updated"))
	}
}

func MyBookings(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, _, ok := sessionUser(c)
		if !ok {
			return
		}
		page, limit := pageParams(c)

		bookings, total, err := b.ListCustomerBookings(c.Request.Context(), session.UserID, session.Email, page, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(bookings, page, limit, total))
	}
}
