package providers

import (
	"github.com/luminacare/checkout/internal/providers/email"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
)
