package polarmqtt

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Factory is the process-wide counted singleton that hands out and
// reclaims sessions and brackets process-wide setup. GetFactory creates
// it lazily and takes a reference; Uninitialize releases one, and the
// singleton is destroyed when the last reference is released. The
// factory must exist before sessions are created and must outlive them.
type Factory struct {
	mu       sync.Mutex
	refCount int
	logger   *zap.Logger
	sessions map[*Session]struct{}
}

var (
	factoryMu sync.Mutex
	factory   *Factory
)

// GetFactory returns the process-wide factory, creating it on first use,
// and increments its reference count. Every call must be balanced by one
// Uninitialize.
func GetFactory() *Factory {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	if factory == nil {
		factory = &Factory{
			logger:   zap.NewNop(),
			sessions: make(map[*Session]struct{}),
		}
	}
	factory.mu.Lock()
	factory.refCount++
	factory.mu.Unlock()
	return factory
}

// Initialize performs process-wide setup: it builds the logger that all
// subsequently created sessions inherit. debug lowers the level to debug;
// logFile redirects output from stdout to the given path. Calling
// Initialize is optional; without it sessions run with a no-op logger.
func (f *Factory) Initialize(appName, appVersion string, debug bool, logFile string) error {
	logger, err := newLogger(appName, appVersion, debug, logFile)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.logger = logger
	f.mu.Unlock()
	logger.Info("initialized", zap.String("app", appName), zap.String("version", appVersion))
	return nil
}

// Uninitialize releases one factory reference. When the last reference is
// released the singleton is destroyed; a later GetFactory starts fresh.
// Sessions must be destroyed before the last Uninitialize.
func (f *Factory) Uninitialize() error {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	f.mu.Lock()
	f.refCount--
	last := f.refCount <= 0
	logger := f.logger
	f.mu.Unlock()
	if last {
		_ = logger.Sync()
		if factory == f {
			factory = nil
		}
	}
	return nil
}

// CreateSession allocates a session with the given client identifier and
// session handler. An empty clientID gets a generated one. The handler is
// required; the message handler is registered separately and optional.
func (f *Factory) CreateSession(clientID string, handler SessionHandler) *Session {
	if clientID == "" {
		clientID = "polar-" + uuid.NewString()
	}
	f.mu.Lock()
	logger := f.logger
	f.mu.Unlock()

	s := newSession(clientID, handler, logger.Named("session").With(zap.String("client_id", clientID)))
	f.mu.Lock()
	f.sessions[s] = struct{}{}
	f.mu.Unlock()
	return s
}

// DestroySession reclaims a session. A still-started session is stopped
// first, so no engine callback can fire into a reclaimed session.
// Destroying a session the factory does not know (or nil) is a no-op.
func (f *Factory) DestroySession(s *Session) {
	if s == nil {
		return
	}
	s.Stop()
	f.mu.Lock()
	delete(f.sessions, s)
	f.mu.Unlock()
}
