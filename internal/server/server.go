package server

import (
	auditdomain "github.com/DeveloperTWH/crownstandard-backend/internal/audit/domain"
	"github.com/DeveloperTWH/crownstandard-backend/internal/config"
	payoutservice "github.com/DeveloperTWH/crownstandard-backend/internal/payout/service"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServerParams struct {
	fx.In

	Log      *zap.Logger
	Cfg      config.Config
	GenID    *snowflake.Node
	Ledger   *payoutservice.Ledger
	Pipeline *payoutservice.Pipeline
	Audit    auditdomain.Service
}

// Server is the operator-facing admin surface. Providers and customers
// never talk to this service directly; their dashboards read the mirror
// fields the ledger maintains on bookings.
type Server struct {
	log      *zap.Logger
	cfg      config.Config
	genID    *snowflake.Node
	ledger   *payoutservice.Ledger
	pipeline *payoutservice.Pipeline
	audit    auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		log:      p.Log.Named("server"),
		cfg:      p.Cfg,
		genID:    p.GenID,
		ledger:   p.Ledger,
		pipeline: p.Pipeline,
		audit:    p.Audit,
	}
}

func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	return engine
}

func (s *Server) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/healthz", s.Healthz)

	api := engine.Group("/api")
	api.Use(auditMiddleware(s.genID))
	{
		api.GET("/payouts", s.ListPayouts)
		api.GET("/payouts/:id", s.GetPayout)
		api.POST("/payouts/:id/retry", s.RetryPayout)
		api.POST("/payouts/:id/hold", s.HoldPayout)
		api.POST("/payouts/:id/release", s.ReleasePayout)
		api.GET("/audit-logs", s.ListAuditLogs)
	}
}

func (s *Server) Healthz(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
