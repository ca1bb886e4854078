package server

import (
	"net/http"
	"strings"

	payoutdomain "github.com/DeveloperTWH/crownstandard-backend/internal/payout/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func parseID(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, ErrInvalid)
		return 0, false
	}
	return id, true
}

func (s *Server) ListPayouts(c *gin.Context) {
	filter := payoutdomain.ListFilter{}

	if provider := strings.TrimSpace(c.Query("provider_id")); provider != "" {
		id, err := snowflake.ParseString(provider)
		if err != nil {
			AbortWithError(c, ErrInvalid)
			return
		}
		filter.ProviderID = id
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		filter.Status = payoutdomain.PayoutStatus(status)
	}
	if cursor := strings.TrimSpace(c.Query("cursor")); cursor != "" {
		id, err := snowflake.ParseString(cursor)
		if err != nil {
			AbortWithError(c, ErrInvalid)
			return
		}
		filter.Cursor = id
	}

	payouts, err := s.ledger.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var next string
	if len(payouts) > 0 {
		next = payouts[len(payouts)-1].ID.String()
	}
	c.JSON(http.StatusOK, gin.H{"payouts": payouts, "next_cursor": next})
}

func (s *Server) GetPayout(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	payout, err := s.ledger.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if payout == nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, payout)
}

// RetryPayout re-runs the transfer immediately instead of waiting for the
// next retry scan.
func (s *Server) RetryPayout(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	outcome, err := s.pipeline.RetryPayout(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.log.Info("manual retry",
		zap.String("payout_id", id.String()),
		zap.String("outcome", string(outcome)),
	)
	c.JSON(http.StatusOK, gin.H{"outcome": outcome})
}

func (s *Server) HoldPayout(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	// Body is optional.
	_ = c.ShouldBindJSON(&req)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		req.Reason = "manual_review"
	}

	if err := s.ledger.Hold(c.Request.Context(), id, req.Reason); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ReleasePayout lifts an operator hold and immediately re-runs the
// transfer.
func (s *Server) ReleasePayout(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := s.ledger.ReleaseHold(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	outcome, err := s.pipeline.RetryPayout(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": outcome})
}
