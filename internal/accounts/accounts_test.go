package accounts_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ohmynofan/tron-assets/internal/accounts"
	"github.com/ohmynofan/tron-assets/internal/apperr"
	"github.com/ohmynofan/tron-assets/internal/config"
	"github.com/ohmynofan/tron-assets/internal/domain/model"
	"github.com/ohmynofan/tron-assets/pkg/utils"
)

const (
	mnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	privKey  = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
)

type clientEvents struct {
	mu     sync.Mutex
	events []string
}

func (c *clientEvents) EmitAllClients(ctx context.Context, event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event+":"+payload.(string))
	return nil
}

func (c *clientEvents) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func newService(t *testing.T, entries []config.Account) (*accounts.Service, *accounts.Wallet, *clientEvents) {
	t.Helper()
	w := accounts.NewWallet()
	w.Load(entries)
	ce := &clientEvents{}
	s := accounts.NewService(w, ce)
	t.Cleanup(func() {
		s.Close()
		w.Close()
	})
	return s, w, ce
}

func TestMnemonicAccounts(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newService(t, []config.Account{{PrivateKey: mnemonic, Indexes: []uint32{0, 1}}})

	list, err := s.GetAccounts(ctx)
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("accounts = %d, want 2", len(list))
	}
	if list[0].Address == list[1].Address {
		t.Fatal("different indexes derived the same address")
	}
	if list[1].HDPath != "m/44'/195'/0'/0/1" {
		t.Fatalf("hd path = %s", list[1].HDPath)
	}
	for _, a := range list {
		if !utils.IsTronAddress(a.Address) {
			t.Errorf("%s is not a tron address", a.Address)
		}
	}

	again, err := s.GetAccounts(ctx)
	if err != nil || again[0].Address != list[0].Address {
		t.Fatalf("derivation not stable: %v %v", again, err)
	}
}

func TestPrivateKeyAccount(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newService(t, []config.Account{{PrivateKey: "0x" + privKey, Indexes: []uint32{3, 4}}})

	list, err := s.GetAccounts(ctx)
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	pk, _ := utils.PrivateKeyFromHex(privKey)
	if len(list) != 1 || list[0].Address != utils.AddressOf(pk) {
		t.Fatalf("accounts = %+v", list)
	}

	w, err := s.GetWallet(ctx)
	if err != nil || w.PrivateKey == nil || w.Address != list[0].Address {
		t.Fatalf("wallet = %+v, %v", w, err)
	}
}

func TestUnknownKeyKindIsInvariant(t *testing.T) {
	s, _, _ := newService(t, []config.Account{{PrivateKey: "not a key"}})
	_, err := s.GetAccounts(context.Background())
	if !apperr.Is(err, apperr.CodeInvariant) {
		t.Fatalf("err = %v, want invariant", err)
	}
}

func TestGetAccountTracksLastAddress(t *testing.T) {
	ctx := context.Background()
	s, w, ce := newService(t, []config.Account{
		{PrivateKey: mnemonic, Indexes: []uint32{0, 1}},
	})

	var mu sync.Mutex
	var seen []string
	s.AddressChanged().Subscribe(func(a string) {
		mu.Lock()
		seen = append(seen, a)
		mu.Unlock()
	})

	first, err := s.GetAccount(ctx)
	if err != nil || first == nil {
		t.Fatalf("account = %v, %v", first, err)
	}
	if s.GetLastAddress() != first.Address {
		t.Fatalf("last address = %s", s.GetLastAddress())
	}
	if _, err := s.GetAccount(ctx); err != nil {
		t.Fatal(err)
	}

	list := w.GetWalletAccounts()
	if err := w.SetActive(list[1]); err != nil {
		t.Fatalf("set active: %v", err)
	}
	second, err := s.GetAccount(ctx)
	if err != nil || second.Address == first.Address {
		t.Fatalf("second = %v, %v", second, err)
	}
	s.AddressChanged().Drain()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != first.Address || seen[1] != second.Address {
		t.Fatalf("address events = %v", seen)
	}
	if ce.count() != 2 {
		t.Fatalf("client events = %d, want 2", ce.count())
	}
}

func TestEmptyWallet(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newService(t, nil)

	acc, err := s.GetAccount(ctx)
	if err != nil || acc != nil {
		t.Fatalf("account = %v, %v", acc, err)
	}
	if _, err := s.GetWallet(ctx); !apperr.Is(err, apperr.CodeResolutionUnavailable) {
		t.Fatalf("err = %v", err)
	}
	list, err := s.GetAccounts(ctx)
	if err != nil || len(list) != 0 {
		t.Fatalf("accounts = %v, %v", list, err)
	}
}

func TestSetActiveUnknown(t *testing.T) {
	_, w, _ := newService(t, []config.Account{{PrivateKey: privKey}})
	err := w.SetActive(model.WalletAccount{WalletKeyID: "nope"})
	if !apperr.Is(err, apperr.CodeResolutionUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadPicksActiveEntry(t *testing.T) {
	_, w, _ := newService(t, []config.Account{
		{PrivateKey: privKey},
		{PrivateKey: mnemonic, Indexes: []uint32{2}, Active: true},
	})
	active, ok := w.GetWalletAccount()
	if !ok || active.AccountIndex != 2 {
		t.Fatalf("active = %+v", active)
	}
}

func TestWatchReloadsWallet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.json")
	if err := os.WriteFile(path, []byte(`["`+privKey+`"]`), 0o600); err != nil {
		t.Fatal(err)
	}

	w := accounts.NewWallet()
	defer w.Close()
	entries, err := config.Config{AccountsPath: path}.LoadAccounts()
	if err != nil {
		t.Fatal(err)
	}
	w.Load(entries)

	changed := make(chan []model.WalletAccount, 4)
	w.AccountsChanged().Subscribe(func(list []model.WalletAccount) { changed <- list })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- accounts.Watch(ctx, path, w) }()

	deadline := time.After(5 * time.Second)
	for {
		if err := os.WriteFile(path, []byte(`[{"pk":"`+mnemonic+`","indexes":[0,1]}]`), 0o600); err != nil {
			t.Fatal(err)
		}
		select {
		case list := <-changed:
			if len(list) != 2 {
				t.Fatalf("reloaded accounts = %+v", list)
			}
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("watch: %v", err)
			}
			return
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("wallet was not reloaded")
		}
	}
}
