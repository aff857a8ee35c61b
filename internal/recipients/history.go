// Package recipients keeps the most recent transfer recipients per (network, token), used to
// suggest "send to" addresses.
package recipients

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ohmynofan/tron-assets/internal/domain/model"
)

// Capacity is the maximum number of recipients kept per (network, token).
const Capacity = 10

type Store interface {
	GetLastRecipients(ctx context.Context, token, network string) (model.RecipientSet, bool, error)
	SetLastRecipients(ctx context.Context, token, network string, data model.RecipientSet) error
}

type History struct {
	store Store
	now   func() time.Time
}

func New(store Store) *History {
	return &History{store: store, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (h *History) WithClock(now func() time.Time) *History {
	h.now = now
	return h
}

func (h *History) AddRecipient(ctx context.Context, token, network, recipient, amount string) error {
	scope := "[AddRecipient] Error :"
	set, _, err := h.store.GetLastRecipients(ctx, token, network)
	if err != nil {
		return fmt.Errorf("%s load recipients: %w", scope, err)
	}
	if set == nil {
		set = model.RecipientSet{}
	}

	if total := len(set); total > Capacity-1 {
		for _, address := range oldestFirst(set)[:total-(Capacity-1)] {
			delete(set, address)
		}
	}
	set[recipient] = model.RecipientEntry{
		Timestamp: h.now().UnixMilli(),
		Amount:    amount,
	}

	if err := h.store.SetLastRecipients(ctx, token, network, set); err != nil {
		return fmt.Errorf("%s save recipients: %w", scope, err)
	}
	return nil
}

// ListRecent returns the recorded recipients newest first.
func (h *History) ListRecent(ctx context.Context, token, network string) ([]model.RecipientRecord, error) {
	set, ok, err := h.store.GetLastRecipients(ctx, token, network)
	if err != nil {
		return nil, fmt.Errorf("[ListRecent] Error : load recipients: %w", err)
	}
	if !ok {
		return []model.RecipientRecord{}, nil
	}

	out := make([]model.RecipientRecord, 0, len(set))
	for address, entry := range set {
		out = append(out, model.RecipientRecord{
			RecipientAddress: address,
			Timestamp:        entry.Timestamp,
			Amount:           entry.Amount,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].RecipientAddress < out[j].RecipientAddress
	})
	return out, nil
}

func oldestFirst(set model.RecipientSet) []string {
	addresses := make([]string, 0, len(set))
	for address := range set {
		addresses = append(addresses, address)
	}
	sort.SliceStable(addresses, func(i, j int) bool {
		ti, tj := set[addresses[i]].Timestamp, set[addresses[j]].Timestamp
		if ti != tj {
			return ti < tj
		}
		return addresses[i] < addresses[j]
	})
	return addresses
}
