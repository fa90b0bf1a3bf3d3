// Package provisioner talks to the VPN panels that actually host configs.
// Panel calls are best effort from the billing engine's point of view; the
// local database is the source of truth and callers decide whether a remote
// failure is fatal.
package provisioner

import (
	"context"

	paneldomain "github.com/smallbiznis/netbill/internal/panel/domain"
)

// Provisioner mutates a config on its hosting panel.
type Provisioner interface {
	Enable(ctx context.Context, panel paneldomain.Panel, panelUserID string) error
	Disable(ctx context.Context, panel paneldomain.Panel, panelUserID string) error
	ResetTraffic(ctx context.Context, panel paneldomain.Panel, panelUserID string) error
	Remove(ctx context.Context, panel paneldomain.Panel, panelUserID string) error
}
