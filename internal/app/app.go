package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/ohmynofan/tron-assets/internal/accounts"
	"github.com/ohmynofan/tron-assets/internal/app/worker"
	"github.com/ohmynofan/tron-assets/internal/apperr"
	"github.com/ohmynofan/tron-assets/internal/assets"
	"github.com/ohmynofan/tron-assets/internal/clients"
	"github.com/ohmynofan/tron-assets/internal/config"
	"github.com/ohmynofan/tron-assets/internal/domain/model"
	"github.com/ohmynofan/tron-assets/internal/network"
	"github.com/ohmynofan/tron-assets/internal/platform/events"
	"github.com/ohmynofan/tron-assets/internal/platform/logger"
	"github.com/ohmynofan/tron-assets/internal/recipients"
	"github.com/ohmynofan/tron-assets/internal/storage/cache"
	"github.com/ohmynofan/tron-assets/internal/storage/kv"
	"github.com/ohmynofan/tron-assets/pkg/utils"
)

type App struct {
	cfg    config.Config
	dialer network.Dialer

	store    kv.Store
	cache    *cache.Store
	history  *recipients.History
	hub      *clients.Hub
	wallet   *accounts.Wallet
	accounts *accounts.Service
	network  *network.Service
	assets   *assets.Service
	refresh  *worker.Controller
	subs     []*events.Subscription

	watchWG sync.WaitGroup
	cancel  context.CancelFunc
	log     *logger.ClassLogger
}

func New(cfg config.Config) *App {
	a := &App{cfg: cfg}
	a.log = logger.NewLogger(a)
	return a
}

// WithDialer replaces how network providers are built.
func (a *App) WithDialer(d network.Dialer) *App {
	a.dialer = d
	return a
}

func (a *App) Run(ctx context.Context) error {
	if err := a.Init(ctx); err != nil {
		a.Close()
		return err
	}
	defer a.Close()

	<-ctx.Done()
	a.log.Log("Shutting down...")
	return nil
}

// Init wires every service, connects to the configured network and arms the refresh.
func (a *App) Init(ctx context.Context) error {
	entries, err := a.cfg.LoadAccounts()
	if err != nil {
		return fmt.Errorf("[Init] Error : load accounts: %w", err)
	}

	store, err := kv.Open(ctx, kv.Options{
		Driver:   a.cfg.StorageDriver,
		Path:     a.cfg.StoragePath,
		MongoURI: a.cfg.MongoURI,
		Database: a.cfg.MongoDatabase,
	})
	if err != nil {
		return fmt.Errorf("[Init] Error : open storage: %w", err)
	}
	a.store = store
	a.cache = cache.New(store)
	a.history = recipients.New(a.cache)

	a.hub = clients.NewHub()
	a.subs = append(a.subs, a.hub.SubscribeAdmin(renderAssets))

	a.wallet = accounts.NewWallet()
	a.wallet.Load(entries)
	a.accounts = accounts.NewService(a.wallet, a.hub)

	a.network = network.NewService(a.cfg, a.hub)
	if a.dialer != nil {
		a.network.WithDialer(a.dialer)
	}

	a.assets = assets.NewService(assets.Deps{
		Ledger:   a.network,
		Cache:    a.cache,
		Accounts: a.accounts,
		Networks: a.network,
		Clients:  a.hub,
	})
	a.refresh = worker.NewController(a.assets, worker.Triggers{
		AddressChanged:  a.accounts.AddressChanged(),
		NetworkChanged:  a.network.NameChanged(),
		AccountsChanged: a.wallet.AccountsChanged(),
		NetworkName:     a.network.NetworkName,
	}, a.cfg.RefreshInterval, a.cfg.RefreshOffset)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel

	a.refresh.Start(runCtx)
	if err := a.network.Switch(ctx, a.cfg.Network); err != nil {
		return err
	}
	if err := a.accounts.Start(ctx); err != nil {
		return err
	}

	if a.cfg.WatchAccounts {
		a.watchWG.Add(1)
		go func() {
			defer a.watchWG.Done()
			apperr.Ignore(a.log, "watch accounts", accounts.Watch(runCtx, a.cfg.AccountsPath, a.wallet))
		}()
	}

	a.log.Log(fmt.Sprintf("Tracking %d accounts on %s", len(a.wallet.GetWalletAccounts()), a.network.NetworkName()))
	return nil
}

func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	a.watchWG.Wait()
	if a.refresh != nil {
		a.refresh.Stop()
	}
	if a.assets != nil {
		a.assets.Wait()
	}
	for _, sub := range a.subs {
		sub.Unsubscribe()
	}
	a.subs = nil
	if a.accounts != nil {
		a.accounts.Close()
	}
	if a.wallet != nil {
		a.wallet.Close()
	}
	if a.network != nil {
		a.network.Close()
	}
	if a.hub != nil {
		a.hub.Close()
	}
	if a.store != nil {
		apperr.Ignore(a.log, "close storage", a.store.Close())
	}
}

func (a *App) currentNetwork() (string, error) {
	name := a.network.NetworkName()
	if name == "" {
		return "", apperr.WrapWithCode(apperr.CodeResolutionUnavailable, "network", fmt.Errorf("no active network"))
	}
	return name, nil
}

func (a *App) Hub() *clients.Hub { return a.hub }

func (a *App) GetAccounts(ctx context.Context) ([]model.AccountVariation, error) {
	return a.accounts.GetAccounts(ctx)
}

func (a *App) GetAccount(ctx context.Context) (*model.AccountVariation, error) {
	return a.accounts.GetAccount(ctx)
}

func (a *App) SwitchNetwork(ctx context.Context, name string) error {
	return a.network.Switch(ctx, name)
}

func (a *App) GetAccountAssets(ctx context.Context, address string) (model.AccountAssets, error) {
	network, err := a.currentNetwork()
	if err != nil {
		return model.AccountAssets{}, err
	}
	return a.assets.GetAccountAssets(ctx, address, network)
}

func (a *App) RefreshAccount(ctx context.Context, address string) error {
	network, err := a.currentNetwork()
	if err != nil {
		return err
	}
	return a.assets.RefreshAccount(ctx, address, network)
}

func (a *App) RefreshAccountTokens(ctx context.Context, address string, tokens []string) error {
	network, err := a.currentNetwork()
	if err != nil {
		return err
	}
	return a.assets.RefreshFollowedTokens(ctx, address, network, tokens)
}

func (a *App) FollowTokens(ctx context.Context, address string, tokens []string) error {
	network, err := a.currentNetwork()
	if err != nil {
		return err
	}
	return a.assets.FollowTokens(ctx, address, network, tokens)
}

func (a *App) UnfollowTokens(ctx context.Context, address string, tokens []string) error {
	network, err := a.currentNetwork()
	if err != nil {
		return err
	}
	return a.assets.UnfollowTokens(ctx, address, network, tokens)
}

// RecordTransfer remembers recipient as the latest destination of token. Hex recipients
// are stored in base58 form.
func (a *App) RecordTransfer(ctx context.Context, token, recipient, amount string) error {
	network, err := a.currentNetwork()
	if err != nil {
		return err
	}
	recipient, err = utils.NormalizeTronAddress(recipient)
	if err != nil {
		return fmt.Errorf("[RecordTransfer] Error : %w", err)
	}
	return a.history.AddRecipient(ctx, token, network, recipient, amount)
}

func (a *App) LastRecipients(ctx context.Context, token string) ([]model.RecipientRecord, error) {
	network, err := a.currentNetwork()
	if err != nil {
		return nil, err
	}
	return a.history.ListRecent(ctx, token, network)
}

// CachedNetworks lists the networks that have cached balances.
func (a *App) CachedNetworks(ctx context.Context) ([]string, error) {
	return a.cache.GetNetworks(ctx)
}
