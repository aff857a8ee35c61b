package accounts

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/ohmynofan/tron-assets/internal/apperr"
	"github.com/ohmynofan/tron-assets/internal/config"
	"github.com/ohmynofan/tron-assets/internal/domain/model"
	"github.com/ohmynofan/tron-assets/internal/platform/events"
	"github.com/ohmynofan/tron-assets/internal/platform/logger"
	"github.com/ohmynofan/tron-assets/pkg/utils"
)

// Wallet holds the configured keys and the accounts derivable from them.
type Wallet struct {
	mu       sync.RWMutex
	keys     map[string]model.WalletKey
	accounts []model.WalletAccount
	active   *model.WalletAccount

	accountsChanged *events.Topic[[]model.WalletAccount]
	accountChanged  *events.Topic[model.WalletAccount]
	log             *logger.ClassLogger
}

func NewWallet() *Wallet {
	w := &Wallet{
		keys:            map[string]model.WalletKey{},
		accountsChanged: events.NewTopic[[]model.WalletAccount]("walletAccountsChanged"),
		accountChanged:  events.NewTopic[model.WalletAccount]("walletAccountChanged"),
	}
	w.log = logger.NewLogger(w)
	return w
}

// keyID is stable for a given secret so cached derivations survive reloads.
func keyID(secret, passphrase string) string {
	sum := sha1.Sum([]byte(secret + "\x00" + passphrase))
	return hex.EncodeToString(sum[:8])
}

func keyKind(secret string) model.KeyKind {
	switch utils.DetermineType(secret) {
	case "Secret Phrase":
		return model.KeyMnemonic
	case "Private Key":
		return model.KeyPrivateKey
	}
	return model.KeyKind("unknown")
}

// Load replaces the wallet content. The active account is the first entry flagged active,
// else the previous active account if it still exists, else the first account.
func (w *Wallet) Load(entries []config.Account) {
	keys := make(map[string]model.WalletKey, len(entries))
	var list []model.WalletAccount
	var flagged *model.WalletAccount

	for _, e := range entries {
		secret := strings.TrimSpace(e.PrivateKey)
		key := model.WalletKey{
			ID:         keyID(secret, e.Passphrase),
			Kind:       keyKind(secret),
			Secret:     secret,
			Passphrase: e.Passphrase,
		}
		if _, dup := keys[key.ID]; dup {
			continue
		}
		keys[key.ID] = key

		indexes := e.Indexes
		if key.Kind != model.KeyMnemonic || len(indexes) == 0 {
			indexes = []uint32{0}
		}
		for _, idx := range indexes {
			wa := model.WalletAccount{WalletKeyID: key.ID, AccountIndex: idx}
			list = append(list, wa)
			if e.Active && flagged == nil {
				flagged = &wa
			}
		}
	}

	w.mu.Lock()
	prevList := w.accounts
	prevActive := w.active

	var active *model.WalletAccount
	switch {
	case flagged != nil:
		active = flagged
	case prevActive != nil && contains(list, *prevActive):
		active = prevActive
	case len(list) > 0:
		active = &list[0]
	}
	w.keys = keys
	w.accounts = list
	w.active = active
	w.mu.Unlock()

	w.log.JustLog(fmt.Sprintf("Loaded %d keys, %d accounts", len(keys), len(list)))

	if !reflect.DeepEqual(prevList, list) {
		apperr.Ignore(w.log, "publish accounts", w.accountsChanged.Publish(cloneAccounts(list)))
	}
	if active != nil && (prevActive == nil || *prevActive != *active) {
		apperr.Ignore(w.log, "publish active account", w.accountChanged.Publish(*active))
	}
}

func (w *Wallet) GetWalletAccounts() []model.WalletAccount {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return cloneAccounts(w.accounts)
}

func (w *Wallet) GetWalletAccount() (model.WalletAccount, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.active == nil {
		return model.WalletAccount{}, false
	}
	return *w.active, true
}

func (w *Wallet) Key(id string) (model.WalletKey, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	k, ok := w.keys[id]
	return k, ok
}

func (w *Wallet) SetActive(wa model.WalletAccount) error {
	w.mu.Lock()
	if !contains(w.accounts, wa) {
		w.mu.Unlock()
		return apperr.WrapWithCode(apperr.CodeResolutionUnavailable, "SetActive",
			fmt.Errorf("account %s/%d not in wallet", wa.WalletKeyID, wa.AccountIndex))
	}
	changed := w.active == nil || *w.active != wa
	w.active = &wa
	w.mu.Unlock()

	if changed {
		return w.accountChanged.Publish(wa)
	}
	return nil
}

func (w *Wallet) AccountsChanged() *events.Topic[[]model.WalletAccount] { return w.accountsChanged }

func (w *Wallet) AccountChanged() *events.Topic[model.WalletAccount] { return w.accountChanged }

func (w *Wallet) Close() {
	w.accountsChanged.Close()
	w.accountChanged.Close()
}

func contains(list []model.WalletAccount, wa model.WalletAccount) bool {
	for _, a := range list {
		if a == wa {
			return true
		}
	}
	return false
}

func cloneAccounts(list []model.WalletAccount) []model.WalletAccount {
	if list == nil {
		return nil
	}
	return append([]model.WalletAccount(nil), list...)
}
