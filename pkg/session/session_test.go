package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadboard/leadboard-cli/pkg/files"
	"github.com/leadboard/leadboard-cli/pkg/models"
)

func TestInMemorySessionLifecycle(t *testing.T) {
	c := New(models.Session{})
	assert.False(t, c.Current().SignedIn())
	assert.Empty(t, c.Token())

	require.NoError(t, c.SignIn(models.Session{Token: "abc", Role: "admin"}))
	assert.Equal(t, "abc", c.Token())
	assert.Equal(t, models.ScopeFull, c.Current().Scope())

	require.NoError(t, c.SignOut())
	assert.False(t, c.Current().SignedIn())

	changed, err := c.Reload()
	require.NoError(t, err)
	assert.False(t, changed, "in-memory sessions never reload")
}

func TestSignInRequiresToken(t *testing.T) {
	c := New(models.Session{})
	assert.Error(t, c.SignIn(models.Session{Role: "seller"}))
}

func TestFileBackedSessionPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), files.SessionFile)

	c, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c.SignIn(models.Session{Token: "t1", Role: "seller"}))

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "t1", reopened.Token())
	assert.Equal(t, models.ScopeRestricted, reopened.Current().Scope())

	require.NoError(t, c.SignOut())
	changed, err := reopened.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, reopened.Current().SignedIn())
}

func TestWatchNoticesExternalSignIn(t *testing.T) {
	path := filepath.Join(t.TempDir(), files.SessionFile)
	c, err := Open(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	var seen []models.Session
	done := make(chan error, 1)
	go func() {
		done <- c.Watch(ctx, func(s models.Session) {
			mu.Lock()
			seen = append(seen, s)
			mu.Unlock()
		})
	}()

	// Another process writes the session. Retry the write until the watcher
	// has been registered and reports the change.
	require.Eventually(t, func() bool {
		_ = files.WriteSessionTo(path, models.Session{Token: "from-elsewhere", Role: "admin"})
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0
	}, 5*time.Second, 50*time.Millisecond)

	assert.Equal(t, "from-elsewhere", c.Token())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchInMemoryReturnsImmediately(t *testing.T) {
	c := New(models.Session{Token: "x"})
	assert.NoError(t, c.Watch(context.Background(), nil))
}
