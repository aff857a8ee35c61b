package assets

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/sync/errgroup"

	"github.com/ohmynofan/tron-assets/internal/apperr"
	"github.com/ohmynofan/tron-assets/internal/domain/model"
	"github.com/ohmynofan/tron-assets/internal/platform/logger"
)

// fetchConcurrency bounds the per-token fan-out of RefreshFollowedTokens.
const fetchConcurrency = 8

type Deps struct {
	Ledger   Ledger
	Cache    Cache
	Accounts AccountResolver
	Networks NetworkResolver
	Clients  Notifier
}

// Service keeps the cached balances of wallet accounts in sync with the ledger.
type Service struct {
	ledger   Ledger
	cache    Cache
	accounts AccountResolver
	networks NetworkResolver
	clients  Notifier
	log      *logger.ClassLogger
	now      func() time.Time

	bg sync.WaitGroup
}

func NewService(d Deps) *Service {
	s := &Service{
		ledger:   d.Ledger,
		cache:    d.Cache,
		accounts: d.Accounts,
		networks: d.Networks,
		clients:  d.Clients,
		now:      time.Now,
	}
	s.log = logger.NewLogger(s)
	return s
}

// WithClock replaces the time source used for balance timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Wait blocks until background work started by earlier calls has finished.
func (s *Service) Wait() { s.bg.Wait() }

func (s *Service) GetAccountAssets(ctx context.Context, address, network string) (model.AccountAssets, error) {
	tokens, _, err := s.cache.GetTokens(ctx, address, network)
	if err != nil {
		return model.AccountAssets{}, err
	}
	return model.AccountAssets{Tokens: tokens}, nil
}

func (s *Service) RefreshAccount(ctx context.Context, address, network string) error {
	s.background(ctx, "updateNativeBalance", func(ctx context.Context) error {
		return s.updateNativeBalance(ctx, address, network)
	})

	saved, _, err := s.cache.GetTokens(ctx, address, network)
	if apperr.Ignore(s.log, "RefreshAccount load saved tokens", err) {
		saved = nil
	}

	remote, err := s.ledger.AccountTokens(ctx, network, address)
	if err != nil {
		if !errors.Is(err, apperr.ErrUnsupported) {
			apperr.Ignore(s.log, "RefreshAccount bulk fetch",
				apperr.WrapWithCode(apperr.CodeTransientFetch, "AccountTokens", err))
		}
		remote = nil
	}

	suspicious := withoutAddress(Suspicious(saved, remote), address)

	if remote != nil {
		tokens := remote.Clone()
		suspicious.Each(func(token string) bool {
			delete(tokens, token)
			return false
		})
		if len(tokens) > 0 {
			delta := tokens.Delta()
			if err := s.cache.SetTokens(ctx, address, network, delta); err != nil {
				return fmt.Errorf("[RefreshAccount] Error : save remote tokens: %w", err)
			}
			s.emitAssets(ctx, address, network, delta)
		}
	}

	return s.RefreshFollowedTokens(ctx, address, network, sortedTokens(suspicious))
}

// RefreshFollowedTokens re-fetches each listed token concurrently. A failed fetch only
// loses the update for that token.
func (s *Service) RefreshFollowedTokens(ctx context.Context, address, network string, addresses []string) error {
	unique := dedupeIgnoreCase(addresses)
	if len(unique) == 0 {
		return nil
	}

	results := make([]model.Balances, len(unique))
	var g errgroup.Group
	g.SetLimit(fetchConcurrency)
	for i, token := range unique {
		g.Go(func() error {
			var (
				balances model.Balances
				err      error
			)
			if model.EqualFold(token, address) {
				balances, err = s.refreshNativeBalance(ctx, address, network)
			} else {
				balances, err = s.refreshTokenBalance(ctx, address, network, token)
			}
			if apperr.Ignore(s.log, "RefreshFollowedTokens "+token, err) {
				return nil
			}
			results[i] = balances
			return nil
		})
	}
	_ = g.Wait()

	delta := model.Delta{}
	for _, balances := range results {
		for token, balance := range balances {
			delta[token] = model.Put(balance)
		}
	}
	if len(delta) == 0 {
		return nil
	}
	if err := s.cache.SetTokens(ctx, address, network, delta); err != nil {
		return fmt.Errorf("[RefreshFollowedTokens] Error : save balances: %w", err)
	}
	return nil
}

func (s *Service) FollowTokens(ctx context.Context, address, network string, addresses []string) error {
	known, err := s.knownTokens(ctx, address, network)
	if err != nil {
		return err
	}
	now := s.now().UnixMilli()
	delta := model.Delta{}
	for _, token := range addresses {
		if !known.Contains(token) {
			delta[token] = model.Put(model.TokenBalance{Timestamp: now})
		}
	}
	return s.applyDelta(ctx, "FollowTokens", address, network, delta)
}

func (s *Service) UnfollowTokens(ctx context.Context, address, network string, addresses []string) error {
	known, err := s.knownTokens(ctx, address, network)
	if err != nil {
		return err
	}
	delta := model.Delta{}
	for _, token := range addresses {
		if known.Contains(token) {
			delta[token] = model.Remove()
		}
	}
	return s.applyDelta(ctx, "UnfollowTokens", address, network, delta)
}

// SyncSavedAddresses aligns the cached addresses of network with the wallet's accounts. If
// either list cannot be read the whole reconciliation is skipped.
func (s *Service) SyncSavedAddresses(ctx context.Context, network string) error {
	accounts, err := s.accounts.GetAccounts(ctx)
	if apperr.Ignore(s.log, "SyncSavedAddresses accounts", err) || len(accounts) == 0 {
		return nil
	}
	accountAddresses := mapset.NewThreadUnsafeSet[string]()
	ordered := make([]string, 0, len(accounts))
	for _, a := range accounts {
		if accountAddresses.Add(a.Address) {
			ordered = append(ordered, a.Address)
		}
	}

	saved, ok, err := s.cache.GetNetworkAddresses(ctx, network)
	if apperr.Ignore(s.log, "SyncSavedAddresses saved addresses", err) || !ok {
		return nil
	}
	savedSet := mapset.NewThreadUnsafeSet(saved...)

	var toRemove, toAdd []string
	for _, address := range saved {
		if !accountAddresses.Contains(address) {
			toRemove = append(toRemove, address)
		}
	}
	for _, address := range ordered {
		if !savedSet.Contains(address) {
			toAdd = append(toAdd, address)
		}
	}
	if len(toRemove) == 0 && len(toAdd) == 0 {
		return nil
	}
	s.log.JustLog(fmt.Sprintf("sync %s addresses: +%d -%d", network, len(toAdd), len(toRemove)))
	return s.cache.SpliceNetworkAddresses(ctx, network, toAdd, toRemove)
}

// CheckUpdate refreshes the active account when its cache is missing or older than
// expectedLastTimestamp (ms). It never fails; problems are logged and dropped.
func (s *Service) CheckUpdate(ctx context.Context, expectedLastTimestamp int64) {
	network := s.networks.NetworkName()
	if network == "" {
		return
	}
	account, err := s.accounts.GetAccount(ctx)
	if apperr.Ignore(s.log, "CheckUpdate resolve account", err) || account == nil {
		return
	}

	s.background(ctx, "SyncSavedAddresses", func(ctx context.Context) error {
		return s.SyncSavedAddresses(ctx, network)
	})

	tokens, ok, err := s.cache.GetTokens(ctx, account.Address, network)
	if apperr.Ignore(s.log, "CheckUpdate load tokens", err) {
		return
	}
	refresh := !ok
	for _, t := range tokens {
		if t.Timestamp == 0 || t.Timestamp < expectedLastTimestamp {
			refresh = true
			break
		}
	}
	if !refresh {
		return
	}
	s.log.Log(fmt.Sprintf("Refreshing %s on %s", account.Address, network))
	apperr.Ignore(s.log, "CheckUpdate refresh", s.RefreshAccount(ctx, account.Address, network))
}

func (s *Service) updateNativeBalance(ctx context.Context, address, network string) error {
	tokens, err := s.refreshNativeBalance(ctx, address, network)
	if err != nil || tokens == nil {
		return err
	}
	return s.cache.SetTokens(ctx, address, network, tokens.Delta())
}

// refreshNativeBalance returns nil when the balance is zero or unknown; such balances are
// never cached.
func (s *Service) refreshNativeBalance(ctx context.Context, address, network string) (model.Balances, error) {
	balance, err := s.ledger.NativeBalance(ctx, network, address)
	if err != nil {
		return nil, apperr.WrapWithCode(apperr.CodeTransientFetch, "NativeBalance", err)
	}
	return s.priced(ctx, address, network, address, balance), nil
}

func (s *Service) refreshTokenBalance(ctx context.Context, address, network, token string) (model.Balances, error) {
	balance, err := s.ledger.TokenBalance(ctx, network, address, token)
	if errors.Is(err, apperr.ErrUnsupported) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.WrapWithCode(apperr.CodeTransientFetch, "TokenBalance", err)
	}
	if tokens := s.priced(ctx, address, network, token, balance); tokens != nil {
		return tokens, nil
	}
	// Empty holding: keep the token followed but drop its stale value.
	tokens := model.Balances{token: {Timestamp: s.now().UnixMilli()}}
	s.emitAssets(ctx, address, network, tokens.Delta())
	return tokens, nil
}

func (s *Service) priced(ctx context.Context, address, network, token string, balance *big.Int) model.Balances {
	if balance == nil || balance.Sign() <= 0 {
		return nil
	}
	tokens := model.Balances{
		token: {Value: model.Priced(hexutil.EncodeBig(balance)), Timestamp: s.now().UnixMilli()},
	}
	s.emitAssets(ctx, address, network, tokens.Delta())
	return tokens
}

func (s *Service) knownTokens(ctx context.Context, address, network string) (mapset.Set[string], error) {
	tokens, _, err := s.cache.GetTokens(ctx, address, network)
	if err != nil {
		return nil, err
	}
	known := mapset.NewThreadUnsafeSetWithSize[string](len(tokens))
	for token := range tokens {
		known.Add(token)
	}
	return known, nil
}

func (s *Service) applyDelta(ctx context.Context, op, address, network string, delta model.Delta) error {
	if err := s.cache.SetTokens(ctx, address, network, delta); err != nil {
		return fmt.Errorf("[%s] Error : save tokens: %w", op, err)
	}
	s.emitAssets(ctx, address, network, delta)
	return nil
}

func (s *Service) emitAssets(ctx context.Context, address, network string, delta model.Delta) {
	payload := model.AccountAssetsChanged{Address: address, Network: network, Tokens: delta}
	apperr.Ignore(s.log, "emit "+model.EventAccountAssetsChanged,
		s.clients.EmitAdminClients(ctx, model.EventAccountAssetsChanged, payload))
}

// background runs fn detached from ctx cancellation; its error is logged and dropped.
func (s *Service) background(ctx context.Context, op string, fn func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		apperr.Ignore(s.log, op, fn(ctx))
	}()
}

func dedupeIgnoreCase(addresses []string) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	out := make([]string, 0, len(addresses))
	for _, a := range addresses {
		key := normalizeKey(a)
		if seen.Add(key) {
			out = append(out, a)
		}
	}
	return out
}

func sortedTokens(set mapset.Set[string]) []string {
	out := set.ToSlice()
	sort.Strings(out)
	return out
}
