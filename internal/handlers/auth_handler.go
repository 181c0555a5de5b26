package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/airportcar/internal/domain"
	"github.com/joshua-takyi/airportcar/internal/helpers"
	"github.com/joshua-takyi/airportcar/internal/models"
	"github.com/joshua-takyi/airportcar/internal/services"
)

func Signup(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in services.SignupInput
		if !bindJSON(c, &in) {
			return
		}

		res, err := u.CreateUser(c.Request.Context(), in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(res, "Account created. Please confirm your email."))
	}
}

// Login exchanges credentials for session cookies. Tokens never appear in
// the response body.
func Login(u *services.UserService, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if !bindJSON(c, &req) {
			return
		}

		tokenRes, err := u.AuthenticateUser(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			if domain.IsValidation(err) {
				respondError(c, err)
				return
			}
			res := models.ErrorResponse("invalid email or password")
			res.RequestID = c.GetString("request_id")
			c.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		helpers.SetAuthCookies(c, tokenRes, secureCookies)
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"user": tokenRes.User}, "Logged in"))
	}
}

func Logout(secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		helpers.ClearAuthCookies(c, secureCookies)
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Logged out successfully"))
	}
}
