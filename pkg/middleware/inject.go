package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// DBKey is the gin context key holding the request-scoped *gorm.DB
	DBKey = "db"
	// RequestIDKey is the gin context key holding the request id
	RequestIDKey = "requestId"
	// RequestIDHeader echoes the id back to callers
	RequestIDHeader = "X-Request-ID"
)

// InjectDB places the shared database handle on every request context.
func InjectDB(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(DBKey, db)
		c.Next()
	}
}

// RequestID tags each request with a uuid, honoring an inbound header when
// the telephony gateway retries a delivery with the same id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
