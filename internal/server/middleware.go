package server

import (
	"github.com/DeveloperTWH/crownstandard-backend/internal/auditcontext"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

// auditMiddleware stamps every request context with a request id and the
// acting operator so audit entries written downstream carry attribution.
// Operator identity comes from the gateway's headers; this service does not
// terminate auth itself.
func auditMiddleware(genID *snowflake.Node) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = genID.Generate().String()
		}

		ctx := auditcontext.WithRequestID(c.Request.Context(), requestID)
		if operator := c.GetHeader("X-Operator-ID"); operator != "" {
			ctx = auditcontext.WithActor(ctx, "admin", operator)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}
