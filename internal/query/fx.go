package query

import (
	"go.uber.org/fx"

	"github.com/copperhq/copper/internal/query/service"
)

var Module = fx.Module("query.service",
	fx.Provide(service.New),
)
