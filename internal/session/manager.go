package session

import (
	"context"
	"sync"

	"drivesend/internal/auth"
	"drivesend/internal/config"
	"drivesend/internal/logger"
	"drivesend/internal/model"
	"drivesend/internal/uploader"
)

// Options configures a session start. Deliverer and Recorder default to the
// real Drive uploader and nothing; tests inject their own.
type Options struct {
	Config    *config.Config
	Deliverer Deliverer
	Recorder  Recorder
}

// Manager owns the current-session reference. Start and Stop are mutually
// exclusive: starting while a session runs performs a full stop first, so
// two workers never race on the same queue.
type Manager struct {
	mu      sync.Mutex
	current *Session
}

func NewManager() *Manager {
	return &Manager{}
}

// Start authenticates, then builds and starts a fresh session. Any running
// session is stopped first. Authentication happens before the watcher is
// armed: a failed start leaves no goroutine behind and the manager Idle.
func (m *Manager) Start(opts Options) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		m.current.Stop()
		m.current = nil
	}

	cfg := opts.Config

	method, err := auth.ParseMethod(cfg.AuthMethod)
	if err != nil {
		return err
	}

	deliver := opts.Deliverer
	if deliver == nil {
		if method == auth.MethodServiceAccount && cfg.OwnerEmail == "" {
			logger.Log.Warn("no owner_email set: service accounts have no personal storage quota, uploads may fail")
		}

		svc, err := auth.NewDriveService(context.Background(), method)
		if err != nil {
			return err
		}

		deliver = uploader.New(svc, cfg.FolderID, cfg.OwnerEmail, method == auth.MethodServiceAccount)
	}

	sess := newSession(cfg, string(method), deliver, opts.Recorder)
	if err := sess.start(); err != nil {
		return err
	}

	m.current = sess
	return nil
}

// Stop stops the current session, if any. Safe to call repeatedly.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		m.current.Stop()
		m.current = nil
	}
}

func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.current != nil && m.current.Running()
}

func (m *Manager) Snapshot() (model.SessionSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return model.SessionSnapshot{}, false
	}

	return m.current.Snapshot(), true
}

func (m *Manager) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return "monitor not running"
	}

	return m.current.Status()
}
