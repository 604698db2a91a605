package api

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// CallerKey is the gin context key holding the authenticated address.
const CallerKey = "caller_address"

// SetCaller stores the authenticated address on the request context.
func SetCaller(c *gin.Context, address common.Address) {
	c.Set(CallerKey, address)
}

// Caller returns the authenticated address, if any.
func Caller(c *gin.Context) (common.Address, bool) {
	v, exists := c.Get(CallerKey)
	if !exists {
		return common.Address{}, false
	}
	address, ok := v.(common.Address)
	if !ok || address == (common.Address{}) {
		return common.Address{}, false
	}
	return address, true
}

// RequireAddress only lets requests from the address returned by allowed through.
// allowed is resolved per request so the admin can change after deployment.
func RequireAddress(allowed func(c *gin.Context) (common.Address, error), message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := Caller(c)
		if !ok {
			UnauthorizedResponse(c)
			c.Abort()
			return
		}

		want, err := allowed(c)
		if err != nil {
			ServiceErrorResponse(c, err, "Desk")
			c.Abort()
			return
		}

		if caller != want {
			ForbiddenResponse(c, message)
			c.Abort()
			return
		}
		c.Next()
	}
}
