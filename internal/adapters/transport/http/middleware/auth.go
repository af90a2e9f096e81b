package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// AccessToken prefers the Authorization header and falls back to the
// access cookie. It returns "" when neither is present.
func AccessToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if v, err := c.Cookie(AccessCookie); err == nil {
		return v
	}
	return ""
}
