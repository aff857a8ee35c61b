package assets_test

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ohmynofan/tron-assets/internal/apperr"
	"github.com/ohmynofan/tron-assets/internal/domain/model"
)

const (
	owner = "TJRabPrwbZy45sbavfcjinPJC18kjpRTv8"
	usdt  = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
	usdc  = "TEkxiTehnzSmSe2XqrBj4w32RUN966rdz8"
	btt   = "TAFjULxiVgT4qWk6UZwjqwZXTSaGaqnVp4"
	net   = "mainnet"
)

type fakeLedger struct {
	mu      sync.Mutex
	native  *big.Int
	nErr    error
	tokens  map[string]*big.Int
	tErr    map[string]error
	bulk    model.Balances
	bulkErr error

	nativeCalls atomic.Int32
	tokenCalls  atomic.Int32
	bulkCalls   atomic.Int32
	fetched     []string
}

func newLedger() *fakeLedger {
	return &fakeLedger{bulkErr: apperr.ErrUnsupported, tokens: map[string]*big.Int{}, tErr: map[string]error{}}
}

func (l *fakeLedger) NativeBalance(ctx context.Context, network, address string) (*big.Int, error) {
	l.nativeCalls.Add(1)
	return l.native, l.nErr
}

func (l *fakeLedger) TokenBalance(ctx context.Context, network, ownerAddr, token string) (*big.Int, error) {
	l.tokenCalls.Add(1)
	l.mu.Lock()
	l.fetched = append(l.fetched, token)
	l.mu.Unlock()
	if err := l.tErr[token]; err != nil {
		return nil, err
	}
	b, ok := l.tokens[token]
	if !ok {
		return nil, apperr.ErrUnsupported
	}
	return b, nil
}

func (l *fakeLedger) AccountTokens(ctx context.Context, network, address string) (model.Balances, error) {
	l.bulkCalls.Add(1)
	if l.bulkErr != nil {
		return nil, l.bulkErr
	}
	return l.bulk.Clone(), nil
}

type fakeAccounts struct {
	account  *model.AccountVariation
	accounts []model.AccountVariation
	err      error
}

func (a *fakeAccounts) GetAccount(ctx context.Context) (*model.AccountVariation, error) {
	return a.account, a.err
}

func (a *fakeAccounts) GetAccounts(ctx context.Context) ([]model.AccountVariation, error) {
	return a.accounts, a.err
}

type fakeNetworks struct{ name string }

func (n fakeNetworks) NetworkName() string { return n.name }

type emitted struct {
	event   string
	payload model.AccountAssetsChanged
}

type fakeClients struct {
	mu     sync.Mutex
	events []emitted
}

func (c *fakeClients) EmitAdminClients(ctx context.Context, event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, emitted{event: event, payload: payload.(model.AccountAssetsChanged)})
	return nil
}

func (c *fakeClients) all() []emitted {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]emitted(nil), c.events...)
}

// countingCache wraps a Cache and records access.
type countingCache struct {
	inner interface {
		GetTokens(ctx context.Context, address, network string) (model.Balances, bool, error)
		SetTokens(ctx context.Context, address, network string, delta model.Delta) error
		GetNetworkAddresses(ctx context.Context, network string) ([]string, bool, error)
		SpliceNetworkAddresses(ctx context.Context, network string, toAdd, toRemove []string) error
	}
	reads, writes, splices atomic.Int32
	failReads              bool
}

var errBroken = errors.New("disk on fire")

func (c *countingCache) GetTokens(ctx context.Context, address, network string) (model.Balances, bool, error) {
	c.reads.Add(1)
	if c.failReads {
		return nil, false, apperr.WrapWithCode(apperr.CodePersistence, "read", errBroken)
	}
	return c.inner.GetTokens(ctx, address, network)
}

func (c *countingCache) SetTokens(ctx context.Context, address, network string, delta model.Delta) error {
	c.writes.Add(1)
	return c.inner.SetTokens(ctx, address, network, delta)
}

func (c *countingCache) GetNetworkAddresses(ctx context.Context, network string) ([]string, bool, error) {
	c.reads.Add(1)
	return c.inner.GetNetworkAddresses(ctx, network)
}

func (c *countingCache) SpliceNetworkAddresses(ctx context.Context, network string, toAdd, toRemove []string) error {
	c.splices.Add(1)
	return c.inner.SpliceNetworkAddresses(ctx, network, toAdd, toRemove)
}

func hasFetched(l *fakeLedger, token string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range l.fetched {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}
