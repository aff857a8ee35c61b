package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ohmynofan/tron-assets/internal/apperr"
	"github.com/ohmynofan/tron-assets/internal/domain/model"
	"github.com/ohmynofan/tron-assets/internal/platform/events"
	"github.com/ohmynofan/tron-assets/internal/platform/logger"
)

const refreshTaskName = "Refresh Tron Account Assets"

type Refresher interface {
	CheckUpdate(ctx context.Context, expectedLastTimestamp int64)
	SyncSavedAddresses(ctx context.Context, network string) error
}

// Triggers are the events that re-arm the refresh. Nil topics are skipped.
type Triggers struct {
	AddressChanged  *events.Topic[string]
	NetworkChanged  *events.Topic[string]
	AccountsChanged *events.Topic[[]model.WalletAccount]
	NetworkName     func() string
}

// Controller owns the periodic asset refresh and the subscriptions that reset it.
type Controller struct {
	sched     *Scheduler
	refresher Refresher
	triggers  Triggers
	log       *logger.ClassLogger

	mu   sync.Mutex
	subs []*events.Subscription
}

func NewController(r Refresher, t Triggers, interval, offset time.Duration) *Controller {
	c := &Controller{refresher: r, triggers: t}
	c.sched = NewScheduler(refreshTaskName, interval, offset, func(ctx context.Context, expected time.Time) error {
		r.CheckUpdate(ctx, expected.UnixMilli())
		return nil
	})
	c.log = logger.NewLogger(c)
	return c
}

func (c *Controller) Scheduler() *Scheduler { return c.sched }

func (c *Controller) Start(ctx context.Context) {
	c.sched.Start(ctx)
	c.sched.Reset()

	c.mu.Lock()
	defer c.mu.Unlock()
	if t := c.triggers.AddressChanged; t != nil {
		c.subs = append(c.subs, t.Subscribe(func(string) { c.sched.Reset() }))
	}
	if t := c.triggers.NetworkChanged; t != nil {
		c.subs = append(c.subs, t.Subscribe(func(string) { c.sched.Reset() }))
	}
	if t := c.triggers.AccountsChanged; t != nil {
		c.subs = append(c.subs, t.Subscribe(func([]model.WalletAccount) {
			c.syncAddresses(context.WithoutCancel(ctx))
		}))
	}
}

func (c *Controller) syncAddresses(ctx context.Context) {
	if c.triggers.NetworkName == nil {
		return
	}
	network := c.triggers.NetworkName()
	if network == "" {
		return
	}
	apperr.Ignore(c.log, "SyncSavedAddresses", c.refresher.SyncSavedAddresses(ctx, network))
}

func (c *Controller) Stop() {
	c.mu.Lock()
	for _, sub := range c.subs {
		sub.Unsubscribe()
	}
	c.subs = nil
	c.mu.Unlock()
	c.sched.Stop()
}
