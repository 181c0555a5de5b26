package helpers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// TokenValidator validates Supabase access tokens against the project's
// JWKS. The key set is fetched once and refreshed in the background.
type TokenValidator struct {
	jwks            *keyfunc.JWKS
	allowUnverified bool
	logger          *slog.Logger
}

func JWKSURL(supabaseURL string) string {
	return fmt.Sprintf("%s/auth/v1/.well-known/jwks.json", strings.TrimRight(supabaseURL, "/"))
}

// NewTokenValidator fetches the key set. When allowUnverified is set (local
// development only) a failed fetch degrades to unverified parsing instead
// of an error.
func NewTokenValidator(ctx context.Context, supabaseURL string, allowUnverified bool, logger *slog.Logger) (*TokenValidator, error) {
	if supabaseURL == "" {
		return nil, errors.New("SUPABASE_URL not set")
	}

	jwks, err := keyfunc.Get(JWKSURL(supabaseURL), keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Error("JWKS refresh failed", "error", err)
		},
	})
	if err != nil {
		if !allowUnverified {
			return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
		}
		logger.Warn("JWKS unavailable, access tokens will NOT be verified", "error", err)
		jwks = nil
	}

	return &TokenValidator{jwks: jwks, allowUnverified: allowUnverified, logger: logger}, nil
}

func (v *TokenValidator) ValidateToken(tokenStr string) (*CustomClaims, error) {
	if v.jwks == nil {
		if !v.allowUnverified {
			return nil, errors.New("token validation unavailable")
		}
		token, _, err := jwt.NewParser().ParseUnverified(tokenStr, &CustomClaims{})
		if err != nil {
			return nil, fmt.Errorf("failed to parse token: %w", err)
		}
		claims, ok := token.Claims.(*CustomClaims)
		if !ok {
			return nil, errors.New("invalid token claims")
		}
		if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
			return nil, errors.New("token is expired")
		}
		return claims, nil
	}

	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, v.jwks.Keyfunc, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	return claims, nil
}

func (v *TokenValidator) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

var (
	lowerPattern   = regexp.MustCompile(`[a-z]`)
	upperPattern   = regexp.MustCompile(`[A-Z]`)
	numberPattern  = regexp.MustCompile(`\d`)
	specialPattern = regexp.MustCompile(`[@$!%*?&]`)
)

func IsPasswordStrong(password string) bool {
	if len(password) < 8 {
		return false
	}
	return lowerPattern.MatchString(password) &&
		upperPattern.MatchString(password) &&
		numberPattern.MatchString(password) &&
		specialPattern.MatchString(password)
}

// StringTrim trims surrounding space and collapses inner runs of whitespace.
func StringTrim(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
