package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go/types"

	"github.com/joshua-takyi/airportcar/internal/config"
	"github.com/joshua-takyi/airportcar/internal/helpers"
	"github.com/joshua-takyi/airportcar/internal/models"
)

const (
	UserKey        = "user"
	EditModeHeader = "X-Edit-Mode"
)

type TokenVerifier interface {
	ValidateToken(token string) (*helpers.CustomClaims, error)
}

// ProfileSource refreshes expired sessions and loads the caller's profile.
type ProfileSource interface {
	RefreshToken(ctx context.Context, refreshToken string) (*types.TokenResponse, error)
	GetUser(ctx context.Context, id uuid.UUID, accessToken string) (*models.User, error)
}

// Authenticate resolves the caller from the auth cookies and attaches a
// session to the request. Requests without a usable token continue as
// guests; RequireAuth and RequireAdmin enforce access.
func Authenticate(verifier TokenVerifier, profiles ProfileSource, secureCookies bool, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, token := resolveClaims(c, verifier, profiles, secureCookies, logger)
		if claims == nil {
			helpers.SetSession(c, &helpers.SessionState{Role: "guest"})
			c.Next()
			return
		}

		c.Set(UserKey, claims)
		session := &helpers.SessionState{
			UserID:      claims.UserID,
			Email:       claims.Email,
			Role:        claims.GetSafeRole(),
			IsAdmin:     claims.IsAdmin(),
			AccessToken: token,
		}
		session.EditMode = session.IsAdmin && editModeRequested(c)
		helpers.SetSession(c, session)
		c.Next()
	}
}

func resolveClaims(c *gin.Context, verifier TokenVerifier, profiles ProfileSource, secureCookies bool, logger *slog.Logger) (*helpers.EnhancedClaims, string) {
	token, _ := c.Cookie(helpers.AccessTokenCookie)
	if token == "" {
		token = bearerToken(c)
	}

	var claims *helpers.CustomClaims
	var err error
	if token != "" {
		claims, err = verifier.ValidateToken(token)
	}
	if token == "" || err != nil {
		refreshToken, refreshErr := c.Cookie(helpers.RefreshTokenCookie)
		if refreshErr != nil || refreshToken == "" {
			return nil, ""
		}

		tokenRes, refreshErr := profiles.RefreshToken(c.Request.Context(), refreshToken)
		if refreshErr != nil || tokenRes == nil || tokenRes.AccessToken == "" {
			logger.WarnContext(c.Request.Context(), "Token refresh failed", "error", refreshErr)
			helpers.ClearAuthCookies(c, secureCookies)
			return nil, ""
		}
		helpers.SetAuthCookies(c, tokenRes, secureCookies)
		logger.InfoContext(c.Request.Context(), "Token refreshed successfully",
			"user_id", tokenRes.User.ID,
			"expires_in", tokenRes.ExpiresIn,
		)

		token = tokenRes.AccessToken
		claims, err = verifier.ValidateToken(token)
		if err != nil {
			logger.WarnContext(c.Request.Context(), "Refreshed token validation failed", "error", err)
			return nil, ""
		}
	}

	enhanced := &helpers.EnhancedClaims{
		CustomClaims: claims,
		Role:         models.RoleCustomer,
		UserID:       claims.Subject,
		Email:        claims.Email,
	}

	userID, parseErr := uuid.Parse(claims.Subject)
	if parseErr != nil {
		logger.WarnContext(c.Request.Context(), "Invalid user ID in token", "user_id", claims.Subject, "error", parseErr)
		return enhanced, token
	}
	user, err := profiles.GetUser(c.Request.Context(), userID, token)
	if err != nil {
		logger.InfoContext(c.Request.Context(), "Profile not found, using default role",
			"user_id", claims.Subject,
			"error", err,
		)
		return enhanced, token
	}
	if user.Role != "" {
		enhanced.Role = user.Role
	}
	enhanced.FullName = user.FullName
	enhanced.Phone = user.Phone
	return enhanced, token
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func editModeRequested(c *gin.Context) bool {
	switch strings.ToLower(strings.TrimSpace(c.GetHeader(EditModeHeader))) {
	case "on", "true", "1":
		return true
	}
	return false
}

// RequireAuth rejects guests.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !helpers.SessionFrom(c).Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse("Unauthorized access"))
			return
		}
		c.Next()
	}
}

// RequireAdmin admits admins only. With ADMIN_DEV_BYPASS set, a development
// server also admits requests from the loopback interface, logging each one.
func RequireAdmin(cfg *config.Config, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := helpers.SessionFrom(c)
		if session.IsAdmin {
			c.Next()
			return
		}

		if devBypassAllowed(cfg, c) {
			logger.WarnContext(c.Request.Context(), "Admin access granted by development bypass",
				"request_id", c.GetString(RequestIDKey),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"remote_ip", c.RemoteIP(),
			)
			bypass := *session
			bypass.IsAdmin = true
			bypass.Role = models.RoleAdmin
			bypass.EditMode = editModeRequested(c)
			helpers.SetSession(c, &bypass)
			c.Next()
			return
		}

		if !session.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse("Unauthorized access"))
			return
		}
		logger.WarnContext(c.Request.Context(), "Admin access denied", "user_id", session.UserID, "path", c.Request.URL.Path)
		c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse("Admin access required"))
	}
}

func devBypassAllowed(cfg *config.Config, c *gin.Context) bool {
	if !cfg.AdminDevBypass || !cfg.IsDevelopment() {
		return false
	}
	// the direct peer, never a forwarded header
	ip := net.ParseIP(c.RemoteIP())
	return ip != nil && ip.IsLoopback()
}
