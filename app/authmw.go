package app

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	AdminPINHeader = "X-Admin-Pin"
	adminPINQuery  = "admin_pin"
)

// AdminPIN guards the admin routes with the shared kiosk PIN.
func AdminPIN(pin string) gin.HandlerFunc {
	want := []byte(pin)
	return func(c *gin.Context) {
		got := c.GetHeader(AdminPINHeader)
		if got == "" {
			got = c.Query(adminPINQuery)
		}
		if len(want) == 0 || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"kind": "unauthorized", "message": "admin pin required"})
			return
		}
		c.Next()
	}
}
