// Package events is a typed in-process publish/subscribe bus.
//   - one Topic[T] per event kind
//   - Publish never blocks on subscribers: values are queued and handed out by a single
//     dispatcher goroutine, in publish order
//   - each subscriber gets a uuid-backed Subscription so it can leave again
package events

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrClosed = errors.New("events: topic closed")

type Handler[T any] func(T)

type Topic[T any] struct {
	name string

	mu       sync.Mutex
	cv       *sync.Cond
	pending  []T
	subs     map[uuid.UUID]Handler[T]
	order    []uuid.UUID
	stopping bool
	idle     bool

	wg sync.WaitGroup
}

func NewTopic[T any](name string) *Topic[T] {
	t := &Topic[T]{
		name: name,
		subs: map[uuid.UUID]Handler[T]{},
		idle: true,
	}
	t.cv = sync.NewCond(&t.mu)

	t.wg.Add(1)
	go t.run()
	return t
}

func (t *Topic[T]) Name() string { return t.name }

type Subscription struct {
	id    uuid.UUID
	leave func()
	once  sync.Once
}

func (s *Subscription) ID() string { return s.id.String() }

func (s *Subscription) Unsubscribe() {
	s.once.Do(s.leave)
}

func (t *Topic[T]) Subscribe(h Handler[T]) *Subscription {
	id := uuid.New()

	t.mu.Lock()
	t.subs[id] = h
	t.order = append(t.order, id)
	t.mu.Unlock()

	return &Subscription{id: id, leave: func() { t.remove(id) }}
}

func (t *Topic[T]) remove(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.subs, id)
	for i, o := range t.order {
		if o == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

func (t *Topic[T]) Publish(v T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopping {
		return ErrClosed
	}
	t.pending = append(t.pending, v)
	t.idle = false
	t.cv.Broadcast()
	return nil
}

// Drain blocks until every value published so far has been handed to the subscribers.
func (t *Topic[T]) Drain() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for !t.idle {
		t.cv.Wait()
	}
}

// Close delivers what is still queued, then stops the dispatcher. Safe to call twice.
func (t *Topic[T]) Close() {
	t.mu.Lock()
	if t.stopping {
		t.mu.Unlock()
		return
	}
	t.stopping = true
	t.cv.Broadcast()
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *Topic[T]) run() {
	defer t.wg.Done()
	t.mu.Lock()
	for {
		for !t.stopping && len(t.pending) == 0 {
			t.idle = true
			t.cv.Broadcast()
			t.cv.Wait()
		}
		if len(t.pending) == 0 {
			t.idle = true
			t.cv.Broadcast()
			t.mu.Unlock()
			return
		}
		v := t.pending[0]
		t.pending = t.pending[1:]
		handlers := make([]Handler[T], 0, len(t.order))
		for _, id := range t.order {
			handlers = append(handlers, t.subs[id])
		}
		t.mu.Unlock()

		for _, h := range handlers {
			deliver(h, v)
		}

		t.mu.Lock()
	}
}

// deliver keeps a panicking subscriber from taking the dispatcher down.
func deliver[T any](h Handler[T], v T) {
	defer func() { _ = recover() }()
	h(v)
}
