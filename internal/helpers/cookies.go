package helpers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go/types"
)

const (
	AccessTokenCookie    = "access_token"
	RefreshTokenCookie   = "refresh_token"
	BookingSessionCookie = "booking_session"

	refreshTokenMaxAge   = 3600 * 24 * 30
	bookingSessionMaxAge = 3600 * 24
)

// SetAuthCookies stores the token pair as HTTP-only cookies.
func SetAuthCookies(c *gin.Context, tok *types.TokenResponse, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessTokenCookie, tok.AccessToken, tok.ExpiresIn, "/", "", secure, true)
	c.SetCookie(RefreshTokenCookie, tok.RefreshToken, refreshTokenMaxAge, "/", "", secure, true)
}

func ClearAuthCookies(c *gin.Context, secure bool) {
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", secure, true)
	c.SetCookie(RefreshTokenCookie, "", -1, "/", "", secure, true)
}

// BookingSession returns the caller's booking form session id, issuing a
// new one when the cookie is absent.
func BookingSession(c *gin.Context, secure bool) string {
	if id, err := c.Cookie(BookingSessionCookie); err == nil && id != "" {
		return id
	}
	id := uuid.New().String()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(BookingSessionCookie, id, bookingSessionMaxAge, "/", "", secure, true)
	return id
}

// ExistingBookingSession returns the booking session id without issuing one.
func ExistingBookingSession(c *gin.Context) string {
	id, _ := c.Cookie(BookingSessionCookie)
	return id
}
