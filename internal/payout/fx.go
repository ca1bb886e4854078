package payout

import (
	"github.com/DeveloperTWH/crownstandard-backend/internal/payout/repository"
	"github.com/DeveloperTWH/crownstandard-backend/internal/payout/service"
	"github.com/DeveloperTWH/crownstandard-backend/internal/transfer"
	"go.uber.org/fx"
)

var Module = fx.Module("payout",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewLedger),
	fx.Provide(service.NewPipeline),
	fx.Provide(func(e *transfer.Executor) service.TransferExecutor { return e }),
)
