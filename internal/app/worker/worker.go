package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ohmynofan/tron-assets/internal/apperr"
	"github.com/ohmynofan/tron-assets/internal/platform/logger"
	"github.com/ohmynofan/tron-assets/internal/platform/ui"
)

type State string

const (
	StateIdle    State = "IDLE"
	StateArmed   State = "ARMED"
	StateStopped State = "STOPPED"
)

// Task receives the time the previous run was due (fire time minus interval).
type Task func(ctx context.Context, expectedLastRun time.Time) error

// Scheduler runs a task every interval, the first time offset after Start or Reset. Task
// failures and panics are logged and never unschedule the task.
type Scheduler struct {
	name     string
	interval time.Duration
	offset   time.Duration
	task     Task
	log      *logger.ClassLogger

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	done    chan struct{}
	resetCh chan struct{}
}

func NewScheduler(name string, interval, offset time.Duration, task Task) *Scheduler {
	return &Scheduler{
		name:     name,
		interval: interval,
		offset:   offset,
		task:     task,
		log:      logger.NewNamed(name),
		state:    StateIdle,
		done:     make(chan struct{}),
		resetCh:  make(chan struct{}, 1),
	}
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start arms the scheduler. Only the first call on an idle scheduler has an effect.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.state = StateArmed
	go s.loop(ctx)
}

// Reset moves the next run to now+offset. A run already in progress is not interrupted.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateArmed {
		return
	}
	select {
	case s.resetCh <- struct{}{}:
	default:
	}
}

// Stop is terminal and safe to call more than once. It waits for a running task.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	prev := s.state
	s.state = StateStopped
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	if prev == StateArmed {
		<-s.done
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	next := time.Now().Add(s.offset)
	timer := time.NewTimer(s.offset)
	defer timer.Stop()
	ui.UpdateStatus(s.name, "Next run in "+ui.FormatDelay(s.offset))

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.resetCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			next = time.Now().Add(s.offset)
			timer.Reset(s.offset)
		case <-timer.C:
			s.run(ctx, next.Add(-s.interval))
			next = next.Add(s.interval)
			now := time.Now()
			for !next.After(now) {
				next = next.Add(s.interval)
			}
			timer.Reset(next.Sub(now))
			ui.UpdateStatus(s.name, "Next run in "+ui.FormatDelay(next.Sub(now)))
		}
	}
}

func (s *Scheduler) run(ctx context.Context, expectedLastRun time.Time) {
	defer func() {
		if r := recover(); r != nil {
			handleError(s.log, fmt.Errorf("panic: %v", r), s.interval)
		}
	}()
	if err := s.task(ctx, expectedLastRun); err != nil {
		handleError(s.log, err, s.interval)
	}
}

func handleError(log *logger.ClassLogger, err error, retry time.Duration) (fatal bool) {
	errMsg := err.Error()
	fatalSubstrings := []string{
		"can not get address",
		"invalid BIP-39 mnemonic",
		"panic:",
	}

	fatal = apperr.Is(err, apperr.CodeInvariant)
	for _, sub := range fatalSubstrings {
		if strings.Contains(errMsg, sub) {
			fatal = true
		}
	}
	if fatal {
		log.Log(fmt.Sprintf("FATAL: %s. Still scheduled, next attempt in %s", errMsg, ui.FormatDelay(retry)))
		return true
	}
	log.Log(fmt.Sprintf("%s, Retrying after %s", errMsg, ui.FormatDelay(retry)))
	return false
}
