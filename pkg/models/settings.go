package models

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings represents the application configuration
type Settings struct {
	API     APISettings     `yaml:"api"`
	Board   BoardSettings   `yaml:"board"`
	UI      UISettings      `yaml:"ui"`
	Logging LoggingSettings `yaml:"logging"`
}

// APISettings controls how the backend is reached
type APISettings struct {
	BaseURL string   `yaml:"base_url"`
	Timeout Duration `yaml:"timeout"`
}

// BoardSettings controls synchronization behaviour
type BoardSettings struct {
	RefreshInterval  Duration `yaml:"refresh_interval"`
	NotificationTime Duration `yaml:"notification_time"`
}

// UISettings controls UI preferences
type UISettings struct {
	ShowSummary     bool   `yaml:"show_summary"`
	ShowSuggestions bool   `yaml:"show_suggestions"`
	MarkdownStyle   string `yaml:"markdown_style"` // glamour standard style: "dark", "light", "notty"
}

// LoggingSettings controls the log file
type LoggingSettings struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // empty means leadboard.log in the config dir, "stderr" logs to the terminal
}

// DefaultSettings returns the default configuration
func DefaultSettings() *Settings {
	return &Settings{
		API: APISettings{
			BaseURL: "http://localhost:8000",
			Timeout: Duration(30 * time.Second),
		},
		Board: BoardSettings{
			RefreshInterval:  Duration(30 * time.Second),
			NotificationTime: Duration(3 * time.Second),
		},
		UI: UISettings{
			ShowSummary:     true,
			ShowSuggestions: true,
			MarkdownStyle:   "dark",
		},
		Logging: LoggingSettings{
			Level: "info",
		},
	}
}

// Duration is a time.Duration written as "30s" in YAML
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}
