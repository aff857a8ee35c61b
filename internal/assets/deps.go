package assets

import (
	"context"
	"math/big"

	"github.com/ohmynofan/tron-assets/internal/domain/model"
)

// Ledger is the remote balance query capability.
type Ledger interface {
	NativeBalance(ctx context.Context, network, address string) (*big.Int, error)
	// TokenBalance returns apperr.ErrUnsupported when token fetching is not wired.
	TokenBalance(ctx context.Context, network, owner, token string) (*big.Int, error)
	// AccountTokens is the bulk fetch; apperr.ErrUnsupported when unavailable.
	AccountTokens(ctx context.Context, network, address string) (model.Balances, error)
}

type Cache interface {
	GetTokens(ctx context.Context, address, network string) (model.Balances, bool, error)
	SetTokens(ctx context.Context, address, network string, delta model.Delta) error
	GetNetworkAddresses(ctx context.Context, network string) ([]string, bool, error)
	SpliceNetworkAddresses(ctx context.Context, network string, toAdd, toRemove []string) error
}

type AccountResolver interface {
	GetAccount(ctx context.Context) (*model.AccountVariation, error)
	GetAccounts(ctx context.Context) ([]model.AccountVariation, error)
}

type NetworkResolver interface {
	NetworkName() string
}

type Notifier interface {
	EmitAdminClients(ctx context.Context, event string, payload any) error
}
