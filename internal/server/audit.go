package server

import (
	"net/http"
	"strconv"
	"strings"

	auditdomain "github.com/DeveloperTWH/crownstandard-backend/internal/audit/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListAuditLogs(c *gin.Context) {
	filter := auditdomain.ListFilter{
		Action:     strings.TrimSpace(c.Query("action")),
		TargetType: strings.TrimSpace(c.Query("target_type")),
		TargetID:   strings.TrimSpace(c.Query("target_id")),
		ActorType:  strings.TrimSpace(c.Query("actor_type")),
	}
	if limit := strings.TrimSpace(c.Query("limit")); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			AbortWithError(c, ErrInvalid)
			return
		}
		filter.Limit = n
	}

	logs, err := s.audit.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit_logs": logs})
}
