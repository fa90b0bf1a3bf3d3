package provisioner

import (
	"context"

	paneldomain "github.com/smallbiznis/netbill/internal/panel/domain"
)

// Nop accepts every call. Used in tests and in deployments where panel sync
// is handled out of band.
type Nop struct{}

func (Nop) Enable(ctx context.Context, panel paneldomain.Panel, panelUserID string) error {
	return nil
}

func (Nop) Disable(ctx context.Context, panel paneldomain.Panel, panelUserID string) error {
	return nil
}

func (Nop) ResetTraffic(ctx context.Context, panel paneldomain.Panel, panelUserID string) error {
	return nil
}

func (Nop) Remove(ctx context.Context, panel paneldomain.Panel, panelUserID string) error {
	return nil
}
