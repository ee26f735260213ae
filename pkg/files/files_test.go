package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leadboard/leadboard-cli/pkg/models"
)

func TestConfigDirHonoursEnv(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv(ConfigDirEnv, tempDir)

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir failed: %v", err)
	}
	if dir != tempDir {
		t.Errorf("ConfigDir() = %s, want %s", dir, tempDir)
	}

	path, err := Path(SettingsFile)
	if err != nil {
		t.Fatalf("Path failed: %v", err)
	}
	if path != filepath.Join(tempDir, SettingsFile) {
		t.Errorf("Path() = %s", path)
	}
}

func TestReadSettingsMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(ConfigDirEnv, t.TempDir())

	settings, err := ReadSettings()
	if err != nil {
		t.Fatalf("ReadSettings failed: %v", err)
	}
	if settings.API.BaseURL != models.DefaultSettings().API.BaseURL {
		t.Errorf("BaseURL = %q, want default", settings.API.BaseURL)
	}
	if settings.Board.RefreshInterval.Std() != 30*time.Second {
		t.Errorf("RefreshInterval = %s, want 30s", settings.Board.RefreshInterval)
	}
}

func TestWriteAndReadSettings(t *testing.T) {
	t.Setenv(ConfigDirEnv, filepath.Join(t.TempDir(), "nested"))

	settings := models.DefaultSettings()
	settings.API.BaseURL = "https://crm.example.com"
	settings.Board.RefreshInterval = models.Duration(10 * time.Second)

	if err := WriteSettings(settings); err != nil {
		t.Fatalf("WriteSettings failed: %v", err)
	}

	loaded, err := ReadSettings()
	if err != nil {
		t.Fatalf("ReadSettings failed: %v", err)
	}
	if loaded.API.BaseURL != "https://crm.example.com" {
		t.Errorf("BaseURL = %q", loaded.API.BaseURL)
	}
	if loaded.Board.RefreshInterval.Std() != 10*time.Second {
		t.Errorf("RefreshInterval = %s", loaded.Board.RefreshInterval)
	}
}

func TestReadSettingsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, SettingsFile)
	if err := os.WriteFile(path, []byte("api: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadSettingsFrom(path); err == nil {
		t.Error("expected parse error for invalid YAML")
	}
}

func TestSessionLifecycleOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), SessionFile)

	empty, err := ReadSessionFrom(path)
	if err != nil {
		t.Fatalf("ReadSessionFrom on missing file: %v", err)
	}
	if empty.SignedIn() {
		t.Error("missing session file should not be signed in")
	}

	want := models.Session{Token: "tok-123", Role: "seller", Email: "ana@example.com"}
	if err := WriteSessionTo(path, want); err != nil {
		t.Fatalf("WriteSessionTo failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat session: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("session permissions = %o, want 600", perm)
	}

	got, err := ReadSessionFrom(path)
	if err != nil {
		t.Fatalf("ReadSessionFrom failed: %v", err)
	}
	if got != want {
		t.Errorf("ReadSessionFrom() = %+v, want %+v", got, want)
	}

	if err := RemoveSessionAt(path); err != nil {
		t.Fatalf("RemoveSessionAt failed: %v", err)
	}
	if err := RemoveSessionAt(path); err != nil {
		t.Errorf("removing a missing session should succeed: %v", err)
	}
}
