package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/httptimesync/httptimesync/internal/fetch"
	"github.com/httptimesync/httptimesync/internal/notify"
	"github.com/httptimesync/httptimesync/internal/system"
)

type State string

const (
	StateIdle     State = "idle"
	StateDelaying State = "delaying"
	StateSyncing  State = "syncing"
	StateWaiting  State = "waiting"
	StateSynced   State = "synced"
	StateFailed   State = "failed"
)

var (
	ErrNoTargets = errors.New("no target URLs configured")
	ErrGaveUp    = errors.New("both sync attempts failed")
)

// TimeSource is satisfied by *fetch.Fetcher.
type TimeSource interface {
	Fetch(ctx context.Context, urls []string) (fetch.Result, error)
}

type Options struct {
	Targets      []string
	RunOnce      bool
	StartupDelay time.Duration
	RetryDelay   time.Duration
	// Schedule decides when the next loop iteration starts, measured from
	// the end of the previous one.
	Schedule cron.Schedule
}

// Attempt is the outcome of one fetch-and-set cycle.
type Attempt struct {
	CycleID string        `json:"cycle_id"`
	Time    time.Time     `json:"time,omitempty"`
	Source  string        `json:"source,omitempty"`
	Err     string        `json:"error,omitempty"`
	Took    time.Duration `json:"took_ns"`
}

type Machine struct {
	source   TimeSource
	clock    system.ClockSetter
	notifier *notify.Notifier
	log      zerolog.Logger
	opts     Options

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
	newID func() string

	mu        sync.RWMutex
	state     State
	last      Attempt
	lastSync  time.Time
	attempts  int
	successes int
	failures  int
	onState   []func(State)
	onAttempt []func(Attempt)
}

func New(source TimeSource, clock system.ClockSetter, notifier *notify.Notifier, log zerolog.Logger, opts Options) *Machine {
	if opts.Schedule == nil {
		opts.Schedule = cron.Every(time.Minute)
	}
	return &Machine{
		source:   source,
		clock:    clock,
		notifier: notifier,
		log:      log,
		opts:     opts,
		sleep:    sleepCtx,
		now:      time.Now,
		newID:    uuid.NewString,
		state:    StateIdle,
	}
}

func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Machine) Info() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mode := "loop"
	if m.opts.RunOnce {
		mode = "once"
	}
	return map[string]any{
		"state":        string(m.state),
		"mode":         mode,
		"targets":      len(m.opts.Targets),
		"last_sync":    m.lastSync,
		"last_attempt": m.last,
		"attempts":     m.attempts,
		"successes":    m.successes,
		"failures":     m.failures,
	}
}

func (m *Machine) OnStateChange(fn func(State)) {
	m.mu.Lock()
	m.onState = append(m.onState, fn)
	m.mu.Unlock()
}

func (m *Machine) OnAttempt(fn func(Attempt)) {
	m.mu.Lock()
	m.onAttempt = append(m.onAttempt, fn)
	m.mu.Unlock()
}

func (m *Machine) setState(s State) {
	m.mu.Lock()
	old := m.state
	m.state = s
	listeners := m.onState
	m.mu.Unlock()

	if old != s {
		m.log.Debug().Str("from", string(old)).Str("to", string(s)).Msg("state change")
		for _, fn := range listeners {
			fn(s)
		}
	}
}

// Run executes the configured mode. In run-once mode it returns nil after a
// successful sync and an error wrapping ErrGaveUp after two failures. In
// loop mode it only returns when ctx is cancelled, and then returns nil.
func (m *Machine) Run(ctx context.Context) error {
	if len(m.opts.Targets) == 0 {
		return ErrNoTargets
	}

	if d := m.opts.StartupDelay; d > 0 {
		m.setState(StateDelaying)
		m.log.Info().Dur("delay", d).Msg("waiting before first sync")
		if err := m.sleep(ctx, d); err != nil {
			return m.stopped(err)
		}
	}

	if m.opts.RunOnce {
		return m.runOnce(ctx)
	}
	m.runLoop(ctx)
	return nil
}

func (m *Machine) stopped(err error) error {
	if m.opts.RunOnce {
		return err
	}
	return nil
}

// runOnce makes at most two attempts, RetryDelay apart.
func (m *Machine) runOnce(ctx context.Context) error {
	err := m.attempt(ctx)
	if err == nil {
		return nil
	}
	m.log.Error().Err(err).Msg("first attempt failed, retrying once")

	if d := m.opts.RetryDelay; d > 0 {
		m.setState(StateWaiting)
		if err := m.sleep(ctx, d); err != nil {
			return err
		}
	}

	if err = m.attempt(ctx); err == nil {
		return nil
	}
	m.log.Error().Err(err).Msg("second attempt failed")
	m.setState(StateFailed)
	m.notifier.Notify(ctx, notify.Event{
		Event:   notify.EventGaveUp,
		Message: err.Error(),
	})
	return fmt.Errorf("%w: %w", ErrGaveUp, err)
}

// runLoop never gives up: every failure is logged and followed by the same
// wait as a success.
func (m *Machine) runLoop(ctx context.Context) {
	m.log.Info().Int("targets", len(m.opts.Targets)).Msg("sync loop started")
	for {
		if err := m.attempt(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			m.log.Error().Err(err).Msg("loop iteration failed")
		}

		now := m.now()
		wait := m.opts.Schedule.Next(now).Sub(now)
		m.setState(StateWaiting)
		m.log.Debug().Dur("wait", wait).Msg("next sync scheduled")
		if err := m.sleep(ctx, wait); err != nil {
			return
		}
	}
}

func (m *Machine) attempt(ctx context.Context) error {
	id := m.newID()
	log := m.log.With().Str("cycle", id).Logger()
	start := m.now()
	m.setState(StateSyncing)

	res, err := m.source.Fetch(ctx, m.opts.Targets)
	if err == nil {
		utc := res.Time.UTC()
		if err = m.clock.SetSystemClock(utc); err != nil {
			log.Error().Err(err).Time("utc", utc).Msg("set system clock failed")
			err = fmt.Errorf("set clock: %w", err)
		}
	} else {
		err = fmt.Errorf("fetch time: %w", err)
	}

	a := Attempt{CycleID: id, Took: m.now().Sub(start)}
	if err != nil {
		a.Err = err.Error()
	} else {
		a.Time = res.Time.UTC()
		a.Source = res.URL
	}
	m.record(a)

	if err != nil {
		m.setState(StateFailed)
		m.notifier.Notify(ctx, notify.Event{
			Event:   notify.EventFailed,
			Message: err.Error(),
			CycleID: id,
		})
		return err
	}

	log.Info().
		Str("source", res.URL).
		Str("method", res.Method).
		Str("header", res.Header).
		Str("local", res.Time.Local().Format("2006-01-02 15:04:05")).
		Msg("system clock set")
	m.setState(StateSynced)
	m.notifier.Notify(ctx, notify.Event{
		Event:   notify.EventSynced,
		Message: "system clock set to " + a.Time.Format(time.RFC3339),
		CycleID: id,
		Data:    map[string]any{"source": res.URL, "utc": a.Time},
	})
	return nil
}

func (m *Machine) record(a Attempt) {
	m.mu.Lock()
	m.last = a
	m.attempts++
	if a.Err == "" {
		m.successes++
		m.lastSync = a.Time
	} else {
		m.failures++
	}
	listeners := m.onAttempt
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(a)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
