// Package session holds the credential and role the client acts with.
//
// A Context is built once at startup and handed to both the API client and
// the board synchronizer. It is populated by SignIn (or from the session
// file) and cleared by SignOut; nothing else reads credentials from ambient
// state.
package session

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/leadboard/leadboard-cli/pkg/files"
	"github.com/leadboard/leadboard-cli/pkg/models"
)

// Context is the explicit session object. It is safe for concurrent use.
type Context struct {
	mu      sync.RWMutex
	current models.Session
	path    string
	logger  *zap.Logger
}

// Option configures a Context
type Option func(*Context)

// WithLogger attaches a logger used by Watch
func WithLogger(logger *zap.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns an in-memory session that is never persisted
func New(initial models.Session, opts ...Option) *Context {
	c := &Context{current: initial, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open loads the session persisted at path. SignIn and SignOut write back to it.
func Open(path string, opts ...Option) (*Context, error) {
	s, err := files.ReadSessionFrom(path)
	if err != nil {
		return nil, err
	}
	c := New(s, opts...)
	c.path = path
	return c, nil
}

// Current returns a copy of the active session
func (c *Context) Current() models.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Token returns the bearer credential, empty when signed out
func (c *Context) Token() string {
	return c.Current().Token
}

// Path returns the backing file, empty for in-memory sessions
func (c *Context) Path() string {
	return c.path
}

// SignIn replaces the session and persists it when file backed
func (c *Context) SignIn(s models.Session) error {
	if !s.SignedIn() {
		return fmt.Errorf("cannot sign in without a token")
	}
	if c.path != "" {
		if err := files.WriteSessionTo(c.path, s); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.current = s
	c.mu.Unlock()
	return nil
}

// SignOut clears the session and removes the file when file backed
func (c *Context) SignOut() error {
	if c.path != "" {
		if err := files.RemoveSessionAt(c.path); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.current = models.Session{}
	c.mu.Unlock()
	return nil
}

// Reload re-reads the backing file and reports whether the session changed
func (c *Context) Reload() (bool, error) {
	if c.path == "" {
		return false, nil
	}
	s, err := files.ReadSessionFrom(c.path)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s == c.current {
		return false, nil
	}
	c.current = s
	return true, nil
}

// Watch follows the session file until ctx is done, calling onChange whenever
// another process signs in or out. In-memory sessions return immediately.
func (c *Context) Watch(ctx context.Context, onChange func(models.Session)) error {
	if c.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start session watcher: %w", err)
	}
	defer watcher.Close()

	// The file is replaced by rename, so watch the directory instead of the inode.
	dir := filepath.Dir(c.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	name := filepath.Clean(c.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			changed, err := c.Reload()
			if err != nil {
				c.logger.Warn("session reload failed", zap.String("path", c.path), zap.Error(err))
				continue
			}
			if changed && onChange != nil {
				onChange(c.Current())
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("session watcher error", zap.Error(err))
		}
	}
}
