// Package clients fans notifications out to connected clients. Admin clients see
// everything, including account balances; other clients only see public state changes.
package clients

import (
	"context"
	"fmt"

	"github.com/ohmynofan/tron-assets/internal/platform/events"
	"github.com/ohmynofan/tron-assets/internal/platform/logger"
)

type Scope string

const (
	ScopeAdmin Scope = "admin"
	ScopeAll   Scope = "all"
)

type Message struct {
	Scope   Scope
	Event   string
	Payload any
}

type Hub struct {
	admin *events.Topic[Message]
	all   *events.Topic[Message]
	log   *logger.ClassLogger
}

func NewHub() *Hub {
	h := &Hub{
		admin: events.NewTopic[Message]("clients/admin"),
		all:   events.NewTopic[Message]("clients/all"),
	}
	h.log = logger.NewLogger(h)
	return h
}

func (h *Hub) EmitAdminClients(ctx context.Context, event string, payload any) error {
	return h.emit(ctx, h.admin, Message{Scope: ScopeAdmin, Event: event, Payload: payload})
}

// EmitAllClients reaches admin subscribers too.
func (h *Hub) EmitAllClients(ctx context.Context, event string, payload any) error {
	msg := Message{Scope: ScopeAll, Event: event, Payload: payload}
	if err := h.emit(ctx, h.all, msg); err != nil {
		return err
	}
	return h.emit(ctx, h.admin, msg)
}

func (h *Hub) emit(ctx context.Context, topic *events.Topic[Message], msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := topic.Publish(msg); err != nil {
		return fmt.Errorf("[Emit %s] Error : %w", msg.Event, err)
	}
	h.log.JustLog(fmt.Sprintf("%s <- %s", topic.Name(), msg.Event))
	return nil
}

func (h *Hub) SubscribeAdmin(fn func(Message)) *events.Subscription {
	return h.admin.Subscribe(fn)
}

func (h *Hub) SubscribeAll(fn func(Message)) *events.Subscription {
	return h.all.Subscribe(fn)
}

// Drain waits until every message emitted so far has been delivered.
func (h *Hub) Drain() {
	h.all.Drain()
	h.admin.Drain()
}

func (h *Hub) Close() {
	h.all.Close()
	h.admin.Close()
}
