package app

import (
	"github.com/vk/startgrid/internal/registry"
	"github.com/vk/startgrid/modules/envcheck"
	"github.com/vk/startgrid/modules/httpcheck"
	"github.com/vk/startgrid/modules/print"
	"github.com/vk/startgrid/modules/sleep"
)

// coreModules is the definitive list of all modules that are compiled into
// the startgrid binary.
var coreModules = []registry.Module{
	&print.Module{},
	&sleep.Module{},
	&envcheck.Module{},
	&httpcheck.Module{},
}
