package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/leadboard/leadboard-cli/pkg/models"
)

const (
	AppDir       = "leadboard"
	SettingsFile = "settings.yaml"
	SessionFile  = "session.yaml"
	LogFile      = "leadboard.log"

	// ConfigDirEnv overrides the config directory, mostly for tests and CI
	ConfigDirEnv = "LEADBOARD_CONFIG_DIR"
)

// ConfigDir returns the directory holding settings, session and logs
func ConfigDir() (string, error) {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, AppDir), nil
}

// Path joins name onto the config directory
func Path(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// EnsureConfigDir creates the config directory if needed
func EnsureConfigDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	return dir, nil
}

// ReadSettings loads settings.yaml over the defaults. A missing file is not an error.
func ReadSettings() (*models.Settings, error) {
	path, err := Path(SettingsFile)
	if err != nil {
		return nil, err
	}
	return ReadSettingsFrom(path)
}

// ReadSettingsFrom loads settings from an explicit path over the defaults
func ReadSettingsFrom(path string) (*models.Settings, error) {
	settings := models.DefaultSettings()

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}

	if err := yaml.Unmarshal(content, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings YAML %s: %w", path, err)
	}

	return settings, nil
}

// WriteSettings writes settings.yaml into the config dir
func WriteSettings(settings *models.Settings) error {
	if _, err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := Path(SettingsFile)
	if err != nil {
		return err
	}
	return writeYAML(path, settings, 0644)
}

// ReadSession loads the persisted session. A missing file yields an empty session.
func ReadSession() (models.Session, error) {
	path, err := Path(SessionFile)
	if err != nil {
		return models.Session{}, err
	}
	return ReadSessionFrom(path)
}

// ReadSessionFrom loads a session from an explicit path
func ReadSessionFrom(path string) (models.Session, error) {
	var session models.Session

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return session, nil
		}
		return session, fmt.Errorf("failed to read session %s: %w", path, err)
	}

	if err := yaml.Unmarshal(content, &session); err != nil {
		return models.Session{}, fmt.Errorf("failed to parse session YAML %s: %w", path, err)
	}
	return session, nil
}

// WriteSessionTo persists a session with owner-only permissions since it holds a token
func WriteSessionTo(path string, session models.Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory for session: %w", err)
	}
	return writeYAML(path, session, 0600)
}

// RemoveSessionAt deletes the session file; a missing file is fine
func RemoveSessionAt(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session %s: %w", path, err)
	}
	return nil
}

// writeYAML writes through a temp file so a watcher never sees a half-written file
func writeYAML(path string, v interface{}, perm os.FileMode) error {
	content, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s to YAML: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
