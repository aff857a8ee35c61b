// Package cache persists per-network account balances and recent transfer recipients as two
// named JSON blobs ("accounts" and "lastSendData") on a kv.Store.
//
// Decoded blobs are kept in memory after the first read, so a mutation that is not written
// back (see SpliceNetworkAddresses) is still visible to later reads of the same Store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ohmynofan/tron-assets/internal/apperr"
	"github.com/ohmynofan/tron-assets/internal/domain/model"
	"github.com/ohmynofan/tron-assets/internal/storage/kv"
)

const (
	accountsKey = "accounts"
	lastSendKey = "lastSendData"
)

type accountData struct {
	Tokens model.Balances `json:"tokens"`
}

// network -> address -> account
type accountsBlob map[string]map[string]*accountData

// network -> token -> recipients
type lastSendBlob map[string]map[string]model.RecipientSet

type Store struct {
	kv kv.Store

	mu       sync.Mutex
	accounts accountsBlob
	lastSend lastSendBlob
}

func New(substrate kv.Store) *Store {
	return &Store{kv: substrate}
}

func (s *Store) GetTokens(ctx context.Context, address, network string) (model.Balances, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.loadAccounts(ctx)
	if err != nil {
		return nil, false, err
	}
	_, networkData, ok := getIgnoreCase(accounts, network)
	if !ok {
		return nil, false, nil
	}
	account := networkData[address]
	if account == nil || account.Tokens == nil {
		return nil, false, nil
	}
	return account.Tokens.Clone(), true, nil
}

// SetTokens merges delta into the cached tokens of (network, address) and persists the
// accounts blob. The write happens even when delta is empty.
func (s *Store) SetTokens(ctx context.Context, address, network string, delta model.Delta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.loadAccounts(ctx)
	if err != nil {
		return err
	}
	networkData := ensureScope(accounts, network, func() map[string]*accountData {
		return map[string]*accountData{}
	})
	account := networkData[address]
	if account == nil {
		account = &accountData{}
		networkData[address] = account
	}
	account.Tokens = delta.Merge(account.Tokens)

	return s.saveAccounts(ctx)
}

func (s *Store) GetNetworks(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.loadAccounts(ctx)
	if err != nil {
		return nil, err
	}
	return sortedKeys(accounts), nil
}

func (s *Store) GetNetworkAddresses(ctx context.Context, network string) ([]string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.loadAccounts(ctx)
	if err != nil {
		return nil, false, err
	}
	_, networkData, ok := getIgnoreCase(accounts, network)
	if !ok {
		return nil, false, nil
	}
	return sortedKeys(networkData), true, nil
}

// SpliceNetworkAddresses adds empty entries for toAdd and drops toRemove. The blob is only
// written when something was removed; additions stay in memory until the next write.
func (s *Store) SpliceNetworkAddresses(ctx context.Context, network string, toAdd, toRemove []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.loadAccounts(ctx)
	if err != nil {
		return err
	}
	networkData := ensureScope(accounts, network, func() map[string]*accountData {
		return map[string]*accountData{}
	})
	for _, address := range toAdd {
		if _, ok := networkData[address]; !ok {
			networkData[address] = &accountData{}
		}
	}
	removed := 0
	for _, address := range toRemove {
		if _, ok := networkData[address]; ok {
			delete(networkData, address)
			removed++
		}
	}
	if removed == 0 {
		return nil
	}
	return s.saveAccounts(ctx)
}

func (s *Store) GetLastRecipients(ctx context.Context, token, network string) (model.RecipientSet, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lastSend, err := s.loadLastSend(ctx)
	if err != nil {
		return nil, false, err
	}
	_, networkData, ok := getIgnoreCase(lastSend, network)
	if !ok {
		return nil, false, nil
	}
	recipients, ok := networkData[token]
	if !ok || recipients == nil {
		return nil, false, nil
	}
	out := make(model.RecipientSet, len(recipients))
	for k, v := range recipients {
		out[k] = v
	}
	return out, true, nil
}

// SetLastRecipients replaces the recipient set of (network, token).
func (s *Store) SetLastRecipients(ctx context.Context, token, network string, data model.RecipientSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lastSend, err := s.loadLastSend(ctx)
	if err != nil {
		return err
	}
	networkData := ensureScope(lastSend, network, func() map[string]model.RecipientSet {
		return map[string]model.RecipientSet{}
	})
	stored := make(model.RecipientSet, len(data))
	for k, v := range data {
		stored[k] = v
	}
	networkData[token] = stored

	return s.saveLastSend(ctx)
}

func (s *Store) loadAccounts(ctx context.Context) (accountsBlob, error) {
	if s.accounts != nil {
		return s.accounts, nil
	}
	accounts := accountsBlob{}
	if err := s.read(ctx, accountsKey, &accounts); err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = accountsBlob{}
	}
	for network, networkData := range accounts {
		if networkData == nil {
			accounts[network] = map[string]*accountData{}
		}
	}
	s.accounts = accounts
	return accounts, nil
}

func (s *Store) saveAccounts(ctx context.Context) error {
	if err := s.write(ctx, accountsKey, s.accounts); err != nil {
		// drop the unsaved in-memory state; the next read reloads the durable blob
		s.accounts = nil
		return err
	}
	return nil
}

func (s *Store) loadLastSend(ctx context.Context) (lastSendBlob, error) {
	if s.lastSend != nil {
		return s.lastSend, nil
	}
	lastSend := lastSendBlob{}
	if err := s.read(ctx, lastSendKey, &lastSend); err != nil {
		return nil, err
	}
	if lastSend == nil {
		lastSend = lastSendBlob{}
	}
	for network, networkData := range lastSend {
		if networkData == nil {
			lastSend[network] = map[string]model.RecipientSet{}
		}
	}
	s.lastSend = lastSend
	return lastSend, nil
}

func (s *Store) saveLastSend(ctx context.Context) error {
	if err := s.write(ctx, lastSendKey, s.lastSend); err != nil {
		s.lastSend = nil
		return err
	}
	return nil
}

func (s *Store) read(ctx context.Context, key string, out any) error {
	b, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return apperr.WrapWithCode(apperr.CodePersistence, "cache.read", err)
	}
	if !ok || len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return apperr.WrapWithCode(apperr.CodePersistence, "cache.read", fmt.Errorf("decode %s: %w", key, err))
	}
	return nil
}

func (s *Store) write(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return apperr.WrapWithCode(apperr.CodePersistence, "cache.write", fmt.Errorf("encode %s: %w", key, err))
	}
	if err := s.kv.Set(ctx, key, b); err != nil {
		return apperr.WrapWithCode(apperr.CodePersistence, "cache.write", err)
	}
	return nil
}

// getIgnoreCase finds the scope for network, comparing case-insensitively. Only the query is
// normalized; stored keys keep the casing they were first written with.
func getIgnoreCase[V any](m map[string]V, network string) (string, V, bool) {
	if v, ok := m[network]; ok {
		return network, v, true
	}
	for _, k := range sortedKeys(m) {
		if strings.EqualFold(k, network) {
			return k, m[k], true
		}
	}
	var zero V
	return "", zero, false
}

func ensureScope[V any](m map[string]V, network string, empty func() V) V {
	if _, v, ok := getIgnoreCase(m, network); ok {
		return v
	}
	v := empty()
	m[strings.ToLower(network)] = v
	return v
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
