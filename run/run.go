// Package run implements the `exec` orchestration spec.md §2 describes as
// the core control flow: resolve provider/server/protocol, ensure
// credentials, create or attach the namespace, then hand the target
// command to ApplicationWrapper. Grounded on run/run_linux.go's dispatch
// role in the teacher (there: picking a jail backend; here: the one and
// only backend, since vopono has no jail-type choice) and on the
// original source's `exec` function in main.rs, which this package
// reproduces step for step in Go.
package run

import (
	"log/slog"

	"github.com/vopono-go/vopono/credentials"
	"github.com/vopono-go/vopono/lockregistry"
	"github.com/vopono-go/vopono/netiface"
	"github.com/vopono-go/vopono/provider"
)

// Deps bundles every collaborator Exec needs, so the orchestration itself
// stays free of global state and is easy to exercise with fakes.
type Deps struct {
	Logger    *slog.Logger
	Selector  *provider.Selector
	Locks     *lockregistry.Registry
	Prompter  credentials.Prompter
	Netlinker netiface.Netlinker
}
