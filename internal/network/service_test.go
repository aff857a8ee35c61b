package network_test

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ohmynofan/tron-assets/internal/adapters/chain"
	apihttp "github.com/ohmynofan/tron-assets/internal/adapters/http"
	"github.com/ohmynofan/tron-assets/internal/apperr"
	"github.com/ohmynofan/tron-assets/internal/config"
	"github.com/ohmynofan/tron-assets/internal/network"
)

const owner = "TJRabPrwbZy45sbavfcjinPJC18kjpRTv8"

type stubBackend struct{ balance *big.Int }

func (b stubBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return b.balance, nil
}

func (b stubBackend) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, errors.New("no contracts here")
}

func (stubBackend) Close() {}

type notified struct {
	mu     sync.Mutex
	events []string
}

func (n *notified) EmitAllClients(ctx context.Context, event string, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *notified) list() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

func newService(t *testing.T, gridURL string, trc20 bool) (*network.Service, *notified, *int) {
	t.Helper()
	n := &notified{}
	dials := 0
	s := network.NewService(config.Config{TRC20Balances: trc20}, n).
		WithClock(func() time.Time { return time.UnixMilli(42) }).
		WithDialer(func(nw config.Network) (*network.Provider, error) {
			dials++
			p := &network.Provider{Network: nw, Chain: chain.NewWithBackend(nw, stubBackend{balance: big.NewInt(9)})}
			if gridURL != "" {
				api, err := apihttp.NewAPIClient(gridURL, "", "")
				if err != nil {
					return nil, err
				}
				p.Grid = apihttp.NewTronGrid(api)
			}
			return p, nil
		})
	t.Cleanup(s.Close)
	return s, n, &dials
}

func TestSwitchPublishesOnce(t *testing.T) {
	ctx := context.Background()
	s, n, dials := newService(t, "", false)

	var mu sync.Mutex
	var seen []string
	s.NameChanged().Subscribe(func(name string) {
		mu.Lock()
		seen = append(seen, name)
		mu.Unlock()
	})

	if s.NetworkName() != "" || s.Connected() {
		t.Fatal("service should start without a network")
	}
	if err := s.Switch(ctx, "Nile"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if err := s.Switch(ctx, "nile"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	s.NameChanged().Drain()

	if s.NetworkName() != "nile" || !s.Connected() {
		t.Fatalf("name=%q connected=%v", s.NetworkName(), s.Connected())
	}
	mu.Lock()
	if len(seen) != 1 || seen[0] != "nile" {
		t.Errorf("published = %v", seen)
	}
	mu.Unlock()
	if *dials != 1 {
		t.Errorf("dials = %d, want 1", *dials)
	}
	if got := n.list(); len(got) != 2 {
		t.Errorf("client events = %v", got)
	}
}

func TestSwitchUnknownNetwork(t *testing.T) {
	s, _, _ := newService(t, "", false)
	err := s.Switch(context.Background(), "ropsten")
	if !apperr.Is(err, apperr.CodeResolutionUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestLedgerCapabilities(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newService(t, "", false)

	bal, err := s.NativeBalance(ctx, "mainnet", owner)
	if err != nil || bal.Int64() != 9 {
		t.Fatalf("native = %v, %v", bal, err)
	}
	if _, err := s.TokenBalance(ctx, "mainnet", owner, owner); !errors.Is(err, apperr.ErrUnsupported) {
		t.Fatalf("token fetch should be unsupported, got %v", err)
	}
	if _, err := s.AccountTokens(ctx, "mainnet", owner); !errors.Is(err, apperr.ErrUnsupported) {
		t.Fatalf("bulk fetch without grid should be unsupported, got %v", err)
	}
}

func TestTokenBalanceEnabled(t *testing.T) {
	s, _, _ := newService(t, "", true)
	_, err := s.TokenBalance(context.Background(), "mainnet", owner, owner)
	if err == nil || errors.Is(err, apperr.ErrUnsupported) {
		t.Fatalf("expected the backend error, got %v", err)
	}
}

func TestAccountTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"balance":1,"trc20":[{"TA":"255"},{"TB":"0"}]}]}`))
	}))
	defer srv.Close()
	s, _, _ := newService(t, srv.URL, false)

	got, err := s.AccountTokens(context.Background(), "nile", owner)
	if err != nil {
		t.Fatalf("account tokens: %v", err)
	}
	if v := got["TA"]; v.Value.String() != "0xff" || v.Timestamp != 42 {
		t.Errorf("TA = %+v", v)
	}
	if v, ok := got["TB"]; !ok || v.Value.IsSet() {
		t.Errorf("TB = %+v, want unpriced", v)
	}
	if _, ok := got[owner]; ok {
		t.Errorf("native balance leaked into token map")
	}
}
