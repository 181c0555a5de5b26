package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/airportcar/internal/domain"
	"github.com/joshua-takyi/airportcar/internal/models"
	"github.com/joshua-takyi/airportcar/internal/services"
)

const maxJSONBody = 1 << 20

// respondError maps a service error to its HTTP status and writes the
// error envelope. Details of upstream and unexpected failures stay in the
// logs; the client only sees the user-safe message.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)

	var res models.ApiResponse
	switch status {
	case http.StatusBadRequest:
		var fieldErrs []models.FieldError
		for _, fm := range domain.FieldMessages(err) {
			fieldErrs = append(fieldErrs, models.FieldError{Field: fm.Field, Message: fm.Message})
		}
		res = models.ErrorListResponse(err.Error(), fieldErrs)
	case http.StatusBadGateway:
		_ = c.Error(err)
		var up domain.UpstreamError
		errors.As(err, &up)
		msg := up.Msg
		if msg == "" {
			msg = "A required service is unavailable. Please try again."
		}
		res = models.ErrorResponse(msg)
	case http.StatusInternalServerError:
		_ = c.Error(err)
		res = models.ErrorResponse("Internal server error")
	default:
		res = models.ErrorResponse(err.Error())
	}
	res.RequestID = c.GetString("request_id")
	c.AbortWithStatusJSON(status, res)
}

func statusFor(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case domain.IsForbidden(err):
		return http.StatusForbidden
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsConflict(err):
		return http.StatusConflict
	case domain.IsUpstream(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, msg string) {
	res := models.ErrorResponse(msg)
	res.RequestID = c.GetString("request_id")
	c.AbortWithStatusJSON(http.StatusBadRequest, res)
}

// bindJSON decodes the request body into v, writing a 400 on failure.
func bindJSON(c *gin.Context, v interface{}) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBody)
	if err := c.ShouldBindJSON(v); err != nil {
		badRequest(c, "invalid request payload")
		return false
	}
	return true
}

func pageParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	return services.NormalizePage(page, limit)
}
