// identity.go resolves the requesting user's email address. Identity here is
// attribution, not access control: every row written to the workbook records
// who asked for it, but a request with no resolvable identity still proceeds
// with an empty requester. Gating access to the service is the deployment's
// perimeter concern (VPN, IAP, reverse proxy).
package middleware

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// IdentityKey is the gin.Context key holding the resolved email, possibly
	// empty.
	IdentityKey = "user_email"

	// TrustedEmailHeader is the header a trusted fronting proxy uses to assert
	// the authenticated user. Only honoured when the proxy is declared trusted
	// in configuration, since any client can forge the header otherwise.
	TrustedEmailHeader = "X-User-Email"
)

// IdentityConfig configures identity resolution.
type IdentityConfig struct {
	// JWTSecret is the HMAC secret for Bearer tokens. Empty disables JWT
	// resolution.
	JWTSecret string
	// TrustProxyHeader honours TrustedEmailHeader when no valid token is
	// present.
	TrustProxyHeader bool
}

// Identity resolves the requester's email from a Bearer JWT (email claim) or,
// failing that, from the trusted proxy header. A malformed or unverifiable
// token logs a warning and degrades to anonymous rather than rejecting the
// request.
func Identity(cfg IdentityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := ""

		if token := bearerToken(c); token != "" && cfg.JWTSecret != "" {
			claimed, err := emailFromJWT(token, cfg.JWTSecret)
			if err != nil {
				slog.Warn("identity token rejected", "tag", "helper", "error", err)
			} else {
				email = claimed
			}
		}

		if email == "" && cfg.TrustProxyHeader {
			email = strings.TrimSpace(c.GetHeader(TrustedEmailHeader))
		}

		c.Set(IdentityKey, email)
		c.Next()
	}
}

// UserEmail returns the identity resolved for this request, or empty.
func UserEmail(c *gin.Context) string {
	if v, ok := c.Get(IdentityKey); ok {
		if email, ok := v.(string); ok {
			return email
		}
	}
	return ""
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// emailFromJWT verifies an HS256 token and extracts its email claim.
func emailFromJWT(token, secret string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type %T", parsed.Claims)
	}
	email, ok := claims["email"].(string)
	if !ok || strings.TrimSpace(email) == "" {
		return "", fmt.Errorf("token has no email claim")
	}
	return strings.TrimSpace(email), nil
}
