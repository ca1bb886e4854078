package booking

import (
	"github.com/DeveloperTWH/crownstandard-backend/internal/booking/repository"
	"github.com/DeveloperTWH/crownstandard-backend/internal/booking/service"
	"go.uber.org/fx"
)

var Module = fx.Module("booking",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewChecker),
)
