// Package supervisor owns the bot's one live session. It starts the session
// on its own goroutine and lets an operator console or a chat command stop
// or restart it from any other goroutine.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CommunityBot/fault"
	"CommunityBot/logging"

	"github.com/pkg/errors"
)

var (
	ErrAlreadyRunning = errors.New("bot is already running")
	ErrNotRunning     = errors.New("bot is not running")
)

type State int

const (
	Offline State = iota
	Starting
	Online
)

func (s State) String() string {
	switch s {
	case Offline:
		return "Offline"
	case Starting:
		return "Starting"
	case Online:
		return "Online"
	default:
		return "Unknown"
	}
}

// Session is the connection a Factory builds.
type Session interface {
	Open() error
	Close() error
}

// Factory builds a fresh session and loads its modules. It runs on the
// supervisor's goroutine while the state is Starting.
type Factory func(ctx context.Context) (Session, error)

type Supervisor struct {
	factory Factory
	delay   time.Duration
	isAuth  func(error) bool
	log     logging.Logger

	mu      sync.Mutex
	state   State
	lastErr error
	current *run
}

// run is one background session lifetime.
type run struct {
	cancel context.CancelFunc
	stop   chan chan error
	done   chan struct{}
}

// New returns an Offline supervisor. delay is the pause Restart leaves
// between stopping and starting; isAuth classifies open errors as
// credential rejections.
func New(factory Factory, delay time.Duration, isAuth func(error) bool) *Supervisor {
	if isAuth == nil {
		isAuth = func(error) bool { return false }
	}
	return &Supervisor{
		factory: factory,
		delay:   delay,
		isAuth:  isAuth,
		log:     logging.New("supervisor"),
	}
}

// Start launches a session in the background. It returns ErrAlreadyRunning
// without side effects if one is Starting or Online.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.log.WithField("state", s.state).Warn("start requested but bot is already running")
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{
		cancel: cancel,
		stop:   make(chan chan error),
		done:   make(chan struct{}),
	}
	s.current = r
	s.state = Starting
	s.lastErr = nil
	go s.serve(ctx, r)
	return nil
}

func (s *Supervisor) serve(ctx context.Context, r *run) {
	defer close(r.done)
	defer r.cancel()

	log := s.log.WithField("stage", "start")
	session, err := s.factory(ctx)
	if err == nil && ctx.Err() != nil {
		// stopped while the factory was still building
		err = ctx.Err()
		s.closeSession(session)
	} else if err == nil {
		if err = session.Open(); err != nil {
			s.closeSession(session)
			if s.isAuth(err) {
				err = fault.New(fault.Auth, "open session", err)
			}
		}
	}
	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		log.Info("start cancelled by stop")
		s.finish(r, nil)
		return
	}
	if err != nil {
		if fault.Is(err, fault.Auth) {
			log.WithError(err).Error("login rejected, check your token")
		} else {
			log.WithError(err).Error("unable to start bot")
		}
		s.finish(r, err)
		return
	}

	s.mu.Lock()
	s.state = Online
	s.mu.Unlock()
	s.log.WithField("state", Online).Info("bot is online")

	reply := <-r.stop
	err = session.Close()
	if err != nil {
		s.log.WithError(err).Error("error closing session")
	}
	s.finish(r, err)
	reply <- err
}

func (s *Supervisor) closeSession(session Session) {
	if err := session.Close(); err != nil {
		s.log.WithError(err).Debug("close unopened session")
	}
}

func (s *Supervisor) finish(r *run, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == r {
		s.current = nil
		s.state = Offline
		s.lastErr = err
	}
	s.log.WithField("state", Offline).Info("bot is offline")
}

// Stop closes the live session and blocks until it is closed. A session
// still Starting has its factory context cancelled.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()
	if r == nil {
		s.log.Warn("stop requested but bot is not running")
		return ErrNotRunning
	}

	// interrupts a factory that is still loading
	r.cancel()

	reply := make(chan error, 1)
	select {
	case r.stop <- reply:
		return <-reply
	case <-r.done:
		// the run ended on its own, or another Stop got there first
		return nil
	}
}

// Restart stops the session if one is live, waits for the configured delay
// so sockets can be released, and starts a new one.
func (s *Supervisor) Restart() error {
	if err := s.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		s.log.WithError(err).Warn("stop before restart failed")
	}
	time.Sleep(s.delay)
	return s.Start()
}

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status describes the state for an operator, including why the last run
// ended if it failed.
func (s *Supervisor) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Offline && s.lastErr != nil {
		return fmt.Sprintf("%s (last error: %v)", s.state, s.lastErr)
	}
	return s.state.String()
}

// Err returns the error that ended the last run, if any.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Wait blocks until the current run, if any, has ended or ctx is done.
func (s *Supervisor) Wait(ctx context.Context) error {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()
	if r == nil {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
