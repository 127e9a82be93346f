package app

import (
	"io"

	"github.com/vk/formrun/internal/registry"
	"github.com/vk/formrun/modules/env_vars"
	"github.com/vk/formrun/modules/http_client"
	"github.com/vk/formrun/modules/print"
	"github.com/vk/formrun/modules/socketio_client"
)

// coreModules is the definitive list of all modules that are compiled into
// the formrun binary. print writes to outW.
func coreModules(outW io.Writer) []registry.Module {
	return []registry.Module{
		&env_vars.Module{},
		&print.Module{Out: outW},
		&http_client.Module{},
		&socketio_client.Module{},
	}
}
