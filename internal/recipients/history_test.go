package recipients_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ohmynofan/tron-assets/internal/recipients"
	"github.com/ohmynofan/tron-assets/internal/storage/cache"
	"github.com/ohmynofan/tron-assets/internal/storage/kv"
)

const token = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newHistory() *recipients.History {
	clock := &stepClock{t: time.UnixMilli(1_700_000_000_000)}
	return recipients.New(cache.New(kv.NewMemory())).WithClock(clock.now)
}

func TestCapacityKeepsMostRecent(t *testing.T) {
	ctx := context.Background()
	h := newHistory()

	for i := 1; i <= 15; i++ {
		if err := h.AddRecipient(ctx, token, "mainnet", fmt.Sprintf("R%d", i), "1"); err != nil {
			t.Fatalf("add R%d: %v", i, err)
		}
		list, err := h.ListRecent(ctx, token, "mainnet")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) > recipients.Capacity {
			t.Fatalf("after R%d: %d entries", i, len(list))
		}
	}

	list, err := h.ListRecent(ctx, token, "mainnet")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 10 {
		t.Fatalf("len = %d, want 10", len(list))
	}
	for i, rec := range list {
		want := fmt.Sprintf("R%d", 15-i)
		if rec.RecipientAddress != want {
			t.Fatalf("list[%d] = %s, want %s", i, rec.RecipientAddress, want)
		}
	}
}

func TestRepeatRecipientUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	h := newHistory()

	for _, r := range []string{"A", "B", "A"} {
		if err := h.AddRecipient(ctx, token, "nile", r, r+"-amount"); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	list, _ := h.ListRecent(ctx, token, "NILE")
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].RecipientAddress != "A" || list[1].RecipientAddress != "B" {
		t.Fatalf("order = %v", list)
	}
}

func TestListRecentSortedDescending(t *testing.T) {
	ctx := context.Background()
	h := newHistory()

	for i := 0; i < 7; i++ {
		if err := h.AddRecipient(ctx, token, "mainnet", fmt.Sprintf("X%d", i), "2"); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	list, _ := h.ListRecent(ctx, token, "mainnet")
	for i := 1; i < len(list); i++ {
		if list[i-1].Timestamp <= list[i].Timestamp {
			t.Fatalf("not strictly descending at %d: %v", i, list)
		}
	}
}

func TestListRecentEmpty(t *testing.T) {
	list, err := newHistory().ListRecent(context.Background(), token, "mainnet")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("want empty non-nil slice, got %#v", list)
	}
}
