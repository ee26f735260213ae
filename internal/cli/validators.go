package cli

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/leadboard/leadboard-cli/pkg/models"
)

// ParseCardID parses a positive card identifier
func ParseCardID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(raw), "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid card id %q: must be a positive integer", raw)
	}
	return id, nil
}

// ParseCardIDs parses ids given as separate args and/or comma lists.
// Duplicates are dropped, order is kept.
func ParseCardIDs(args []string) ([]int, error) {
	var ids []int
	seen := make(map[int]bool)
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			id, err := ParseCardID(part)
			if err != nil {
				return nil, err
			}
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no card ids given")
	}
	return ids, nil
}

// ValidateStage parses a target stage argument
func ValidateStage(raw string) (models.Stage, error) {
	return models.ParseStage(raw)
}

// ValidateURL checks an absolute http(s) URL
func ValidateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid URL %q: must be an absolute http or https URL", raw)
	}
	return nil
}

// ValidateOutputFormat validates the output format flag
func ValidateOutputFormat(format string) error {
	validFormats := []string{"text", "json", "yaml"}
	for _, valid := range validFormats {
		if format == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid output format: %s (must be: text, json, or yaml)", format)
}
