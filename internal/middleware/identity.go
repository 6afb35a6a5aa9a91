package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gotrs-io/gotrs-helpdesk/internal/models"
)

// Headers set by the authenticating gateway in front of the API.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserName  = "X-User-Name"
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"

	identityKey = "identity"
)

// Identity reads the caller from the gateway headers and stores it in the
// gin context. It never rejects a request; use RequireIdentity or RequireAdmin.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		who := models.Identity{
			UserID:  strings.TrimSpace(c.GetHeader(HeaderUserID)),
			Name:    strings.TrimSpace(c.GetHeader(HeaderUserName)),
			Email:   strings.TrimSpace(c.GetHeader(HeaderUserEmail)),
			IsAdmin: strings.EqualFold(strings.TrimSpace(c.GetHeader(HeaderUserRole)), "admin"),
		}
		if who.Name == "" {
			who.Name = who.Email
		}
		c.Set(identityKey, who)
		if !who.Anonymous() {
			c.Set("user_id", who.UserID)
		}
		c.Next()
	}
}

// GetIdentity returns the identity stored by Identity.
func GetIdentity(c *gin.Context) models.Identity {
	if v, ok := c.Get(identityKey); ok {
		if who, ok := v.(models.Identity); ok {
			return who
		}
	}
	return models.Identity{}
}

// RequireIdentity rejects requests without a user.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetIdentity(c).Anonymous() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects requests from anyone but administrators.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		who := GetIdentity(c)
		if who.Anonymous() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}
		if !who.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
