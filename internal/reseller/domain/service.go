package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type TopUpResult struct {
	ResellerID    snowflake.ID `json:"reseller_id"`
	Amount        int64        `json:"amount"`
	BalanceBefore int64        `json:"balance_before"`
	BalanceAfter  int64        `json:"balance_after"`
	Status        Status       `json:"status"`

	ReenabledConfigs int `json:"reenabled_configs"`
	FailedConfigs    int `json:"failed_configs,omitempty"`
}

type Service interface {
	Create(ctx context.Context, reseller *Reseller) error
	Get(ctx context.Context, id snowflake.ID) (*Reseller, error)
	// TopUp credits the wallet and, when the credit lifts a suspended
	// reseller above the threshold, reactivates the reseller and sweeps its
	// wallet-suspended configs back on.
	TopUp(ctx context.Context, id snowflake.ID, amount int64) (*TopUpResult, error)
}
