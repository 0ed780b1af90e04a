package middleware

import (
	"net/http"

	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/gin-gonic/gin"
)

// IDParam rejects requests whose named path parameters are not record ids.
// Routes without the parameter pass through.
func IDParam(names ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range names {
			value, ok := c.Params.Get(name)
			if ok && !repository.IsID(value) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
				c.Abort()
				return
			}
		}
		c.Next()
	}
}
