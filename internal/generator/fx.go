package generator

import (
	"go.uber.org/fx"

	"github.com/copperhq/copper/internal/generator/service"
)

var Module = fx.Module("generator.service",
	fx.Provide(service.New),
)
