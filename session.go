package aoa

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// teardownTimeout bounds each release call made while a session shuts
// down, usually after its own context is already done.
const teardownTimeout = 2 * time.Second

// A Role is the application logic a session runs once the stack is
// enabled.
type Role interface {
	// Name identifies the role in logs.
	Name() string

	// Start configures the stack. It runs once, in state Ready.
	Start(ctx context.Context, s *Session) error

	// HandleEvent is called for every stack event, one at a time.
	// Returning ErrDone ends the session without error.
	HandleEvent(ctx context.Context, s *Session, ev Event) error
}

// Session drives one role over one stack, owns the handles the role
// creates and releases them when it ends.
type Session struct {
	stack Stack
	role  Role
	log   *logrus.Entry

	heartbeat    time.Duration
	heartbeatMsg string

	mu     sync.RWMutex
	state  State
	advSet *AdvSet
	sync   *Sync
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. The role name is added as field "app".
func WithLogger(l *logrus.Entry) Option {
	return func(s *Session) { s.log = l }
}

// WithHeartbeat logs msg every d while the session is running.
func WithHeartbeat(d time.Duration, msg string) Option {
	return func(s *Session) {
		s.heartbeat = d
		s.heartbeatMsg = msg
	}
}

// NewSession returns a session that will run r over st.
func NewSession(st Stack, r Role, opts ...Option) *Session {
	s := &Session{
		stack: st,
		role:  r,
		log:   logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("app", r.Name())
	return s
}

// Stack returns the stack the session drives.
func (s *Session) Stack() Stack { return s.stack }

// Log returns the session logger.
func (s *Session) Log() *logrus.Entry { return s.log }

// State returns the current state. It is safe to call from any goroutine.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetState moves the session into next.
func (s *Session) SetState(next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := transition(s.state, next); err != nil {
		return err
	}
	s.log.Debugf("state %s -> %s", s.state, next)
	s.state = next
	return nil
}

// OwnAdvSet records set as owned by the session; it is deleted on
// teardown.
func (s *Session) OwnAdvSet(set AdvSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advSet = &set
}

// AdvSet returns the owned advertising set, if any.
func (s *Session) AdvSet() (AdvSet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.advSet == nil {
		return AdvSet{}, false
	}
	return *s.advSet, true
}

// OwnSync records sync as owned by the session; it is terminated on
// teardown.
func (s *Session) OwnSync(sync Sync) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync = &sync
}

// ReleaseSync forgets the owned sync without terminating it, for syncs
// the controller has already dropped.
func (s *Session) ReleaseSync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync = nil
}

// Sync returns the owned periodic sync, if any.
func (s *Session) Sync() (Sync, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sync == nil {
		return Sync{}, false
	}
	return *s.sync, true
}

// Run enables the stack, starts the role and dispatches stack events to
// it until ctx is done, the stack closes its event channel, or the role
// returns ErrDone. Owned handles are released before Run returns.
func (s *Session) Run(ctx context.Context) error {
	if err := s.SetState(StateEnabling); err != nil {
		return err
	}
	defer s.teardown()

	if err := s.stack.Enable(ctx); err != nil {
		s.log.WithField("status", Status(err)).Errorf("Bluetooth init failed (err %d)", Status(err))
		return errors.Wrap(err, "enable")
	}
	s.log.Info("Bluetooth initialized")
	if err := s.SetState(StateReady); err != nil {
		return err
	}

	if err := s.role.Start(ctx, s); err != nil {
		return errors.Wrapf(err, "%s", s.role.Name())
	}
	return s.loop(ctx)
}

func (s *Session) loop(ctx context.Context) error {
	var tick <-chan time.Time
	if s.heartbeat > 0 {
		t := time.NewTicker(s.heartbeat)
		defer t.Stop()
		tick = t.C
	}
	events := s.stack.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			s.log.Info(s.heartbeatMsg)
		case ev, ok := <-events:
			if !ok {
				s.log.Warn("stack closed its event channel")
				return nil
			}
			if err := s.role.HandleEvent(ctx, s, ev); err != nil {
				if err == ErrDone {
					return nil
				}
				return errors.Wrapf(err, "%s: %s", s.role.Name(), ev.eventName())
			}
		}
	}
}

func (s *Session) teardown() {
	if sync, ok := s.Sync(); ok {
		ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		if err := s.stack.TerminateSync(ctx, sync); err != nil {
			s.log.WithError(err).Warn("terminate sync")
		}
		cancel()
		s.ReleaseSync()
	}
	if set, ok := s.AdvSet(); ok {
		ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		if err := s.stack.DeleteExtAdv(ctx, set); err != nil {
			s.log.WithError(err).Warn("delete advertising set")
		}
		cancel()
		s.mu.Lock()
		s.advSet = nil
		s.mu.Unlock()
	}
	if err := s.stack.Close(); err != nil {
		s.log.WithError(err).Warn("close stack")
	}
	if s.State() != StateTerminated {
		s.SetState(StateTerminated)
	}
}
