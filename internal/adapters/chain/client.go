package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/ohmynofan/tron-assets/internal/config"
	"github.com/ohmynofan/tron-assets/internal/platform/logger"
	"github.com/ohmynofan/tron-assets/pkg/utils"
)

const trc20ABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"}]`

var trc20 = mustParseABI(trc20ABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Backend is the slice of the JSON-RPC client the TronClient needs. *ethclient.Client
// satisfies it.
type Backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	Close()
}

// TronClient reads balances through the TRON node's Ethereum-compatible JSON-RPC endpoint.
// Addresses are accepted in base58 or hex form.
type TronClient struct {
	backend    Backend
	network    config.Network
	log        *logger.ClassLogger
	ownsClient bool
}

func New(network config.Network) (*TronClient, error) {
	scope := "[New TronClient] Error :"
	tc := &TronClient{network: network, ownsClient: true}
	tc.log = logger.NewLogger(tc)
	tc.log.JustLog(fmt.Sprintf("Initializing Tron Client on %s...", network.Name))

	client, err := ethclient.Dial(network.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("%s failed to connect RPC (%s): %w", scope, network.Name, err)
	}
	tc.backend = client
	return tc, nil
}

// NewWithBackend wraps an existing backend; Close leaves it open.
func NewWithBackend(network config.Network, backend Backend) *TronClient {
	tc := &TronClient{backend: backend, network: network}
	tc.log = logger.NewLogger(tc)
	return tc
}

func (t *TronClient) Network() config.Network { return t.network }

func (t *TronClient) Close() {
	if t.backend != nil && t.ownsClient {
		t.backend.Close()
	}
}

func (t *TronClient) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	scope := "[NativeBalance] Error :"
	account, err := utils.TronToEthAddress(address)
	if err != nil {
		return nil, fmt.Errorf("%s %w", scope, err)
	}
	balance, err := t.backend.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("%s failed to fetch balance of %s: %w", scope, address, err)
	}
	t.log.JustLog(fmt.Sprintf("Balance of %s: %s %s", utils.ShortenAddress(address),
		utils.FormatUnits(balance, t.network.Decimals), t.network.Symbol))
	return balance, nil
}

// TokenBalance calls balanceOf(owner) on a TRC20 contract.
func (t *TronClient) TokenBalance(ctx context.Context, owner, token string) (*big.Int, error) {
	scope := "[TokenBalance] Error :"
	ownerAddr, err := utils.TronToEthAddress(owner)
	if err != nil {
		return nil, fmt.Errorf("%s owner: %w", scope, err)
	}
	tokenAddr, err := utils.TronToEthAddress(token)
	if err != nil {
		return nil, fmt.Errorf("%s token: %w", scope, err)
	}

	data, err := trc20.Pack("balanceOf", ownerAddr)
	if err != nil {
		return nil, fmt.Errorf("%s pack balanceOf: %w", scope, err)
	}
	out, err := t.backend.CallContract(ctx, ethereum.CallMsg{From: ownerAddr, To: &tokenAddr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call %s: %w", scope, token, err)
	}
	values, err := trc20.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("%s unpack balanceOf of %s: %w", scope, token, err)
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s unexpected balanceOf result %T", scope, values[0])
	}
	return balance, nil
}
