// Package accounts resolves wallet accounts to TRON addresses and tracks the active one.
package accounts

import (
	"context"
	"fmt"
	"sync"

	"github.com/ohmynofan/tron-assets/internal/apperr"
	"github.com/ohmynofan/tron-assets/internal/domain/model"
	"github.com/ohmynofan/tron-assets/internal/platform/events"
	"github.com/ohmynofan/tron-assets/internal/platform/logger"
	"github.com/ohmynofan/tron-assets/pkg/utils"
)

type Notifier interface {
	EmitAllClients(ctx context.Context, event string, payload any) error
}

type Service struct {
	wallet  *Wallet
	clients Notifier

	mu          sync.Mutex
	lastAddress string
	derived     map[model.WalletAccount]*model.Wallet

	addressChanged *events.Topic[string]
	sub            *events.Subscription
	log            *logger.ClassLogger
}

func NewService(wallet *Wallet, clients Notifier) *Service {
	s := &Service{
		wallet:         wallet,
		clients:        clients,
		derived:        map[model.WalletAccount]*model.Wallet{},
		addressChanged: events.NewTopic[string]("addressChanged"),
	}
	s.log = logger.NewLogger(s)
	return s
}

// Start resolves the active account once and follows later active-account changes.
func (s *Service) Start(ctx context.Context) error {
	s.sub = s.wallet.AccountChanged().Subscribe(func(model.WalletAccount) {
		_, err := s.GetAccount(context.Background())
		apperr.Ignore(s.log, "follow active account", err)
	})
	_, err := s.GetAccount(ctx)
	return err
}

func (s *Service) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	s.addressChanged.Close()
}

func (s *Service) AddressChanged() *events.Topic[string] { return s.addressChanged }

func (s *Service) GetLastAddress() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAddress
}

func (s *Service) GetAccounts(ctx context.Context) ([]model.AccountVariation, error) {
	list := s.wallet.GetWalletAccounts()
	out := make([]model.AccountVariation, 0, len(list))
	for _, wa := range list {
		info, err := s.GetAccountInfo(ctx, wa)
		if err != nil {
			return nil, err
		}
		out = append(out, *info)
	}
	return out, nil
}

// GetAccount returns the active account, or nil when the wallet has none. The resolved
// address becomes the last address.
func (s *Service) GetAccount(ctx context.Context) (*model.AccountVariation, error) {
	wa, ok := s.wallet.GetWalletAccount()
	if !ok {
		s.setLastAddress(ctx, "")
		return nil, nil
	}
	info, err := s.GetAccountInfo(ctx, wa)
	if err != nil {
		return nil, err
	}
	s.setLastAddress(ctx, info.Address)
	return info, nil
}

func (s *Service) GetAccountInfo(ctx context.Context, wa model.WalletAccount) (*model.AccountVariation, error) {
	w, err := s.walletFor(wa)
	if err != nil {
		return nil, err
	}
	return &model.AccountVariation{WalletAccount: wa, HDPath: w.HDPath, Address: w.Address}, nil
}

// GetWallet returns the signing material of the active account.
func (s *Service) GetWallet(ctx context.Context) (*model.Wallet, error) {
	wa, ok := s.wallet.GetWalletAccount()
	if !ok {
		return nil, apperr.WrapWithCode(apperr.CodeResolutionUnavailable, "GetWallet",
			fmt.Errorf("no active account"))
	}
	w, err := s.walletFor(wa)
	if err != nil {
		return nil, err
	}
	cp := *w
	return &cp, nil
}

func (s *Service) walletFor(wa model.WalletAccount) (*model.Wallet, error) {
	s.mu.Lock()
	w, ok := s.derived[wa]
	s.mu.Unlock()
	if ok {
		return w, nil
	}

	key, ok := s.wallet.Key(wa.WalletKeyID)
	if !ok {
		return nil, apperr.WrapWithCode(apperr.CodeResolutionUnavailable, "walletFor",
			fmt.Errorf("unknown wallet key %s", wa.WalletKeyID))
	}
	w, err := derive(key, wa.AccountIndex)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.derived[wa] = w
	s.mu.Unlock()
	return w, nil
}

func derive(key model.WalletKey, index uint32) (*model.Wallet, error) {
	switch key.Kind {
	case model.KeyMnemonic:
		path := utils.TronHDPath(index)
		pk, address, err := utils.Derive(key.Secret, key.Passphrase, path)
		if err != nil {
			return nil, apperr.WrapWithCode(apperr.CodeInvariant, "derive", err)
		}
		return &model.Wallet{PrivateKey: pk, Address: address, HDPath: path}, nil
	case model.KeyPrivateKey:
		pk, err := utils.PrivateKeyFromHex(key.Secret)
		if err != nil {
			return nil, apperr.WrapWithCode(apperr.CodeInvariant, "derive", err)
		}
		return &model.Wallet{PrivateKey: pk, Address: utils.AddressOf(pk)}, nil
	}
	return nil, apperr.WrapWithCode(apperr.CodeInvariant, "derive",
		fmt.Errorf("can not get address: unsupported key kind %q", key.Kind))
}

func (s *Service) setLastAddress(ctx context.Context, address string) {
	s.mu.Lock()
	changed := s.lastAddress != address
	s.lastAddress = address
	s.mu.Unlock()
	if !changed {
		return
	}
	s.log.Log(fmt.Sprintf("Active address %s", utils.ShortenAddress(address)))
	apperr.Ignore(s.log, "publish address", s.addressChanged.Publish(address))
	apperr.Ignore(s.log, "emit address",
		s.clients.EmitAllClients(ctx, model.EventAddressChanged, address))
}
