package main

import (
	"github.com/DeveloperTWH/crownstandard-backend/internal/audit"
	"github.com/DeveloperTWH/crownstandard-backend/internal/booking"
	"github.com/DeveloperTWH/crownstandard-backend/internal/clock"
	"github.com/DeveloperTWH/crownstandard-backend/internal/config"
	"github.com/DeveloperTWH/crownstandard-backend/internal/currency"
	"github.com/DeveloperTWH/crownstandard-backend/internal/dispute"
	"github.com/DeveloperTWH/crownstandard-backend/internal/events"
	"github.com/DeveloperTWH/crownstandard-backend/internal/logger"
	"github.com/DeveloperTWH/crownstandard-backend/internal/migration"
	"github.com/DeveloperTWH/crownstandard-backend/internal/payout"
	"github.com/DeveloperTWH/crownstandard-backend/internal/scheduler"
	"github.com/DeveloperTWH/crownstandard-backend/internal/server"
	"github.com/DeveloperTWH/crownstandard-backend/internal/transfer"
	"github.com/DeveloperTWH/crownstandard-backend/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	app := fx.New(
		logger.Module,
		config.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
			cfg.Validate(log)
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return migration.RunMigrations(sqlDB)
		}),

		audit.Module,
		events.Module,
		currency.Module,
		booking.Module,
		dispute.Module,
		transfer.Module,
		payout.Module,
		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
