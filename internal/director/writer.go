package director

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/melody2video/internal/errs"
	"github.com/ivlev/melody2video/internal/system"
)

const stage = "timeline"

// WriteTimeline writes a timeline to a YAML file
func WriteTimeline(t *Timeline, path string) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return errs.Compute(stage, "marshal timeline", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errs.IO(stage, "create timeline directory", err).With("path", dir)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errs.IO(stage, "write timeline", err).With("path", path)
	}
	return nil
}

// ReadTimeline reads a timeline from a YAML file
func ReadTimeline(path string) (*Timeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.IO(stage, "read timeline", err).With("path", path)
	}

	var t Timeline
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, errs.Decode(stage, "parse timeline", err).With("path", path)
	}
	return &t, nil
}

// GenerateTimelinePath creates a timestamped timeline filename in dir
func GenerateTimelinePath(dir string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("timeline_%s.yaml", timestamp))
}

// FindLatestTimeline finds the most recent timeline file in dir
func FindLatestTimeline(dir string) (string, error) {
	path, err := system.FindLatest(dir, []string{".yaml", ".yml"})
	if err != nil {
		return "", fmt.Errorf("failed to read timelines directory: %w", err)
	}
	if path == "" {
		return "", fmt.Errorf("no timeline files found in %s", dir)
	}
	return path, nil
}
