package dispute

import (
	"github.com/DeveloperTWH/crownstandard-backend/internal/dispute/repository"
	"github.com/DeveloperTWH/crownstandard-backend/internal/dispute/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dispute",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewGate),
)
