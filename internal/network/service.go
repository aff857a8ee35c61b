// Package network tracks the active TRON network and owns one provider per network.
package network

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/ohmynofan/tron-assets/internal/adapters/chain"
	apihttp "github.com/ohmynofan/tron-assets/internal/adapters/http"
	"github.com/ohmynofan/tron-assets/internal/apperr"
	"github.com/ohmynofan/tron-assets/internal/config"
	"github.com/ohmynofan/tron-assets/internal/domain/model"
	"github.com/ohmynofan/tron-assets/internal/platform/events"
	"github.com/ohmynofan/tron-assets/internal/platform/logger"
)

// Provider bundles the clients of one network. Grid may be nil.
type Provider struct {
	Network config.Network
	Chain   *chain.TronClient
	Grid    *apihttp.TronGrid
}

func (p *Provider) Close() {
	if p.Chain != nil {
		p.Chain.Close()
	}
}

type Dialer func(network config.Network) (*Provider, error)

type Notifier interface {
	EmitAllClients(ctx context.Context, event string, payload any) error
}

type Service struct {
	mu        sync.RWMutex
	current   string
	connected bool
	providers map[string]*Provider

	dial        Dialer
	trc20       bool
	clients     Notifier
	nameChanged *events.Topic[string]
	log         *logger.ClassLogger
	now         func() time.Time
}

func NewService(cfg config.Config, clients Notifier) *Service {
	s := &Service{
		providers:   map[string]*Provider{},
		trc20:       cfg.TRC20Balances,
		clients:     clients,
		nameChanged: events.NewTopic[string](model.EventNetworkNameChanged),
		now:         time.Now,
	}
	s.dial = DialTronGrid(cfg.TronGridAPIKey)
	s.log = logger.NewLogger(s)
	return s
}

// DialTronGrid builds providers talking to the public TronGrid endpoints.
func DialTronGrid(apiKey string) Dialer {
	return func(network config.Network) (*Provider, error) {
		tc, err := chain.New(network)
		if err != nil {
			return nil, err
		}
		p := &Provider{Network: network, Chain: tc}
		if network.APIURL != "" {
			api, err := apihttp.NewAPIClient(network.APIURL, apiKey, "")
			if err != nil {
				tc.Close()
				return nil, err
			}
			p.Grid = apihttp.NewTronGrid(api)
		}
		return p, nil
	}
}

func (s *Service) WithDialer(d Dialer) *Service {
	s.dial = d
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// NetworkName returns the active network, "" before the first Switch.
func (s *Service) NetworkName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Service) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *Service) NameChanged() *events.Topic[string] { return s.nameChanged }

// Switch makes name the active network, connecting to it if needed.
func (s *Service) Switch(ctx context.Context, name string) error {
	network, ok := config.LookupNetwork(name)
	if !ok {
		return apperr.WrapWithCode(apperr.CodeResolutionUnavailable, "Switch",
			fmt.Errorf("unknown network %q", name))
	}
	if _, err := s.provider(network.Name); err != nil {
		s.setConnected(ctx, false)
		return err
	}

	s.mu.Lock()
	changed := s.current != network.Name
	s.current = network.Name
	s.mu.Unlock()
	s.setConnected(ctx, true)

	if !changed {
		return nil
	}
	s.log.Log(fmt.Sprintf("Switched to %s", network.Name))
	s.log.LogObject("Network", network)
	apperr.Ignore(s.log, "publish network change", s.nameChanged.Publish(network.Name))
	return s.clients.EmitAllClients(ctx, model.EventNetworkNameChanged, network.Name)
}

func (s *Service) setConnected(ctx context.Context, connected bool) {
	s.mu.Lock()
	changed := s.connected != connected
	s.connected = connected
	s.mu.Unlock()
	if changed {
		apperr.Ignore(s.log, "emit connected state",
			s.clients.EmitAllClients(ctx, model.EventConnectedChanged, connected))
	}
}

func (s *Service) provider(name string) (*Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))

	s.mu.RLock()
	p, ok := s.providers[key]
	s.mu.RUnlock()
	if ok {
		return p, nil
	}

	network, ok := config.LookupNetwork(key)
	if !ok {
		return nil, apperr.WrapWithCode(apperr.CodeResolutionUnavailable, "provider",
			fmt.Errorf("unknown network %q", name))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.providers[key]; ok {
		return p, nil
	}
	p, err := s.dial(network)
	if err != nil {
		return nil, apperr.WrapWithCode(apperr.CodeResolutionUnavailable, "dial "+network.Name, err)
	}
	s.providers[key] = p
	return p, nil
}

func (s *Service) NativeBalance(ctx context.Context, network, address string) (*big.Int, error) {
	p, err := s.provider(network)
	if err != nil {
		return nil, err
	}
	return p.Chain.NativeBalance(ctx, address)
}

// TokenBalance is only wired when TRC20 balance fetching is enabled.
func (s *Service) TokenBalance(ctx context.Context, network, owner, token string) (*big.Int, error) {
	if !s.trc20 {
		return nil, apperr.ErrUnsupported
	}
	p, err := s.provider(network)
	if err != nil {
		return nil, err
	}
	return p.Chain.TokenBalance(ctx, owner, token)
}

// AccountTokens returns the TRC20 holdings TronGrid reports. Zero holdings come back
// unpriced.
func (s *Service) AccountTokens(ctx context.Context, network, address string) (model.Balances, error) {
	p, err := s.provider(network)
	if err != nil {
		return nil, err
	}
	if p.Grid == nil {
		return nil, apperr.ErrUnsupported
	}
	snap, err := p.Grid.Account(ctx, address)
	if err != nil {
		return nil, err
	}
	now := s.now().UnixMilli()
	out := make(model.Balances, len(snap.TRC20))
	for contract, v := range snap.TRC20 {
		tb := model.TokenBalance{Timestamp: now}
		if v.Sign() > 0 {
			tb.Value = model.Priced(hexutil.EncodeBig(v))
		}
		out[contract] = tb
	}
	return out, nil
}

func (s *Service) Close() {
	s.mu.Lock()
	for key, p := range s.providers {
		p.Close()
		delete(s.providers, key)
	}
	s.mu.Unlock()
	s.nameChanged.Close()
}
