// Package sync is the seam for the out-of-scope config-fetching
// collaborator (spec.md §1, §2): downloading and unpacking a provider's
// OpenVPN/WireGuard config archive into <config-dir>/<alias>/<protocol>/.
// This package implements provider.Syncer against that seam but never
// performs the network fetch itself — real fetching (scraping each
// provider's server list and config-archive endpoints) is a distinct
// concern from the namespace lifecycle engine this repo focuses on.
package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vopono-go/vopono/provider"
)

// Unimplemented is a provider.Syncer that always fails, explaining that a
// config-fetching collaborator has not been wired in. It satisfies the
// interface so `cli` and `run` can be built and tested against the full
// seam before a real fetcher exists.
type Unimplemented struct {
	Logger *slog.Logger
}

// Sync always returns an error: see package doc.
func (u Unimplemented) Sync(ctx context.Context, req provider.SyncRequest) error {
	if u.Logger != nil {
		u.Logger.Error("no sync collaborator configured", "provider", req.Provider, "protocol", req.Protocol)
	}
	return fmt.Errorf("fetching config files for %s %s requires a sync collaborator, none is configured; populate the config directory manually", req.Provider, req.Protocol)
}
