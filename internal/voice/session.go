// Package voice runs the always-on listening session: wake words, the
// awake/ambient cycle, auto-sleep and recognizer recovery.
package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/financas-voz/internal/domain"
)

// State is the externally visible state of a Session.
type State string

const (
	StateInactive         State = "INACTIVE"
	StateAmbientListening State = "AMBIENT_LISTENING"
	StateActiveListening  State = "ACTIVE_LISTENING"
	StateProcessing       State = "PROCESSING"
)

const (
	// AutoSleepAfter is how long an awake session waits for speech before going back to ambient.
	AutoSleepAfter = 45 * time.Second
	// RestartDelay separates a recognizer ending on its own from the restart.
	RestartDelay = 150 * time.Millisecond

	// MsgPermissionRequired is reported when the microphone is denied.
	MsgPermissionRequired = "Permissão necessária"
)

var (
	// ErrBusy is returned by Submit while a command is being processed.
	ErrBusy = errors.New("voice: processing another command")
	// ErrNotActive is returned by Submit when the session is not awake.
	ErrNotActive = errors.New("voice: session is not awake")
)

// CommandHandler executes a command extracted from speech.
type CommandHandler interface {
	HandleText(ctx context.Context, text string) error
}

// Listener is told about session changes. Methods are called without any
// session lock held, so they may call back into the Session.
type Listener interface {
	OnStateChange(s State)
	OnWake(mode domain.Mode)
	OnSleep()
	OnError(message string)
}

// Hooks implements Listener with optional callbacks.
type Hooks struct {
	StateChangeFunc func(s State)
	WakeFunc        func(mode domain.Mode)
	SleepFunc       func()
	ErrorFunc       func(message string)
}

func (h Hooks) OnStateChange(s State) {
	if h.StateChangeFunc != nil {
		h.StateChangeFunc(s)
	}
}

func (h Hooks) OnWake(mode domain.Mode) {
	if h.WakeFunc != nil {
		h.WakeFunc(mode)
	}
}

func (h Hooks) OnSleep() {
	if h.SleepFunc != nil {
		h.SleepFunc()
	}
}

func (h Hooks) OnError(message string) {
	if h.ErrorFunc != nil {
		h.ErrorFunc(message)
	}
}

// Config wires a Session to its collaborators.
type Config struct {
	Recognizer Recognizer
	Handler    CommandHandler
	Listener   Listener // optional
	Clock      Clock    // defaults to RealClock
	Log        zerolog.Logger
}

// Status is a point-in-time view of a Session.
type Status struct {
	State     State       `json:"state"`
	Mode      domain.Mode `json:"mode,omitempty"`
	LastError string      `json:"lastError,omitempty"`
}

// Session is the listening state machine. At most one command is in flight;
// utterances heard meanwhile are dropped.
type Session struct {
	rec      Recognizer
	handler  CommandHandler
	listener Listener
	clock    Clock
	log      zerolog.Logger

	mu         sync.Mutex
	ctx        context.Context
	listening  bool // the session should be listening
	awake      bool
	mode       domain.Mode
	processing bool
	lastError  string

	sleepTimer   Timer
	sleepGen     uint64
	restartTimer Timer
	restartGen   uint64

	pending  []func(Listener)
	inflight sync.WaitGroup
}

// NewSession creates an inactive Session.
func NewSession(cfg Config) *Session {
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	if cfg.Listener == nil {
		cfg.Listener = Hooks{}
	}
	return &Session{
		rec:      cfg.Recognizer,
		handler:  cfg.Handler,
		listener: cfg.Listener,
		clock:    cfg.Clock,
		log:      cfg.Log,
		ctx:      context.Background(),
		mode:     domain.ModeFinance,
	}
}

func (s *Session) stateLocked() State {
	switch {
	case !s.listening && !s.processing:
		return StateInactive
	case s.processing:
		return StateProcessing
	case s.awake:
		return StateActiveListening
	default:
		return StateAmbientListening
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Status returns the current state, mode and last reported error.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{State: s.stateLocked(), LastError: s.lastError}
	if s.awake {
		st.Mode = s.mode
	}
	return st
}

// do runs fn under the lock, then delivers the notifications it queued.
func (s *Session) do(fn func()) {
	s.mu.Lock()
	before := s.stateLocked()
	fn()
	if after := s.stateLocked(); after != before {
		s.notify(func(l Listener) { l.OnStateChange(after) })
	}
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, n := range pending {
		n(s.listener)
	}
}

func (s *Session) notify(n func(Listener)) {
	s.pending = append(s.pending, n)
}

// Start starts the recognizer and enters ambient listening.
func (s *Session) Start(ctx context.Context) error {
	var err error
	s.do(func() {
		if s.listening {
			return
		}
		if err = s.rec.Start(ctx); err != nil {
			s.log.Error().Err(err).Msg("Failed to start recognizer")
			if errors.Is(err, ErrPermissionDenied) {
				s.denyLocked()
			}
			return
		}
		s.ctx = ctx
		s.listening = true
		s.awake = false
		s.lastError = ""
	})
	return err
}

// Stop stops listening. A command already in flight still completes.
func (s *Session) Stop() error {
	var err error
	s.do(func() {
		s.listening = false
		s.awake = false
		s.cancelSleepLocked()
		s.cancelRestartLocked()
		err = s.rec.Stop()
	})
	return err
}

// Sleep returns an awake session to ambient listening.
func (s *Session) Sleep() {
	s.do(s.sleepLocked)
}

func (s *Session) sleepLocked() {
	if !s.awake {
		return
	}
	s.awake = false
	s.cancelSleepLocked()
	s.notify(func(l Listener) { l.OnSleep() })
}

func (s *Session) wakeLocked(mode domain.Mode) {
	s.awake = true
	s.mode = mode
	s.resetSleepLocked()
	s.notify(func(l Listener) { l.OnWake(mode) })
}

func (s *Session) denyLocked() {
	s.listening = false
	s.awake = false
	s.lastError = MsgPermissionRequired
	s.cancelSleepLocked()
	s.cancelRestartLocked()
	s.notify(func(l Listener) { l.OnError(MsgPermissionRequired) })
}

// HandleUtterance processes one finalized transcript.
func (s *Session) HandleUtterance(text string) {
	s.do(func() {
		text = strings.TrimSpace(text)
		if !s.listening || text == "" {
			return
		}
		if s.processing {
			s.log.Debug().Str("text", text).Msg("Dropping utterance while processing")
			return
		}

		if !s.awake {
			mode, rest, ok := DetectWake(text)
			if !ok {
				return
			}
			s.wakeLocked(mode)
			if rest != "" {
				s.forwardLocked(rest, s.handler.HandleText, nil)
			}
			return
		}

		s.resetSleepLocked()
		d := Evaluate(ActiveRules, text)
		s.log.Debug().Str("rule", d.Rule).Str("effect", d.Effect.String()).Msg("Utterance evaluated")

		switch d.Effect {
		case EffectSleep:
			s.sleepLocked()
		case EffectSwitchMode, EffectConfirmMode:
			s.wakeLocked(d.Mode)
		case EffectCommand:
			s.forwardLocked(d.Text, s.handler.HandleText, nil)
		}
	})
}

// Submit forwards a typed command while awake and waits for it to be handled.
func (s *Session) Submit(text string) error {
	return s.SubmitFunc(text, s.handler.HandleText)
}

// SubmitFunc is Submit with fn run in place of the session's handler. The
// command holds the session in PROCESSING like any spoken one.
func (s *Session) SubmitFunc(text string, fn func(ctx context.Context, text string) error) error {
	text = strings.TrimSpace(text)
	done := make(chan error, 1)
	var err error
	s.do(func() {
		switch {
		case s.processing:
			err = ErrBusy
		case !s.listening || !s.awake:
			err = ErrNotActive
		case text == "":
			err = errors.New("voice: empty command")
		default:
			s.forwardLocked(text, fn, done)
		}
	})
	if err != nil {
		return err
	}
	return <-done
}

func (s *Session) forwardLocked(text string, fn func(context.Context, string) error, done chan<- error) {
	s.processing = true
	s.cancelSleepLocked()
	ctx := s.ctx

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		err := fn(ctx, text)
		if err != nil {
			s.log.Error().Err(err).Str("text", text).Msg("Command handler failed")
		}

		s.do(func() {
			s.processing = false
			if s.awake {
				s.resetSleepLocked()
			}
		})
		if done != nil {
			done <- err
		}
	}()
}

// Wait blocks until no command is in flight.
func (s *Session) Wait() {
	s.inflight.Wait()
}

// HandleEvent feeds one recognizer event into the state machine.
func (s *Session) HandleEvent(ev Event) {
	switch ev.Kind {
	case EventResult:
		s.HandleUtterance(ev.Transcript)
	case EventEnd:
		s.do(s.scheduleRestartLocked)
	case EventError:
		if ev.Error != ErrorNotAllowed {
			s.log.Debug().Str("error", ev.Error).Msg("Ignoring recognizer error")
			return
		}
		s.do(func() {
			if err := s.rec.Stop(); err != nil {
				s.log.Warn().Err(err).Msg("Failed to stop recognizer")
			}
			s.denyLocked()
		})
	}
}

// Run consumes the recognizer's events until ctx is done or the stream closes.
func (s *Session) Run(ctx context.Context) error {
	events := s.rec.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.HandleEvent(ev)
		}
	}
}

func (s *Session) scheduleRestartLocked() {
	if !s.listening {
		return
	}
	s.cancelRestartLocked()
	gen := s.restartGen
	s.restartTimer = s.clock.AfterFunc(RestartDelay, func() {
		s.do(func() {
			if gen != s.restartGen || !s.listening {
				return
			}
			s.restartTimer = nil
			if err := s.rec.Start(s.ctx); err != nil {
				s.log.Warn().Err(err).Msg("Recognizer restart failed")
				s.listening = false
				s.awake = false
				s.cancelSleepLocked()
				if errors.Is(err, ErrPermissionDenied) {
					s.denyLocked()
				}
			}
		})
	})
}

func (s *Session) cancelRestartLocked() {
	s.restartGen++
	if s.restartTimer != nil {
		s.restartTimer.Stop()
		s.restartTimer = nil
	}
}

func (s *Session) resetSleepLocked() {
	s.cancelSleepLocked()
	gen := s.sleepGen
	s.sleepTimer = s.clock.AfterFunc(AutoSleepAfter, func() {
		s.do(func() {
			if gen != s.sleepGen {
				return
			}
			s.sleepTimer = nil
			s.log.Debug().Msg("Auto sleep")
			s.sleepLocked()
		})
	})
}

func (s *Session) cancelSleepLocked() {
	s.sleepGen++
	if s.sleepTimer != nil {
		s.sleepTimer.Stop()
		s.sleepTimer = nil
	}
}
