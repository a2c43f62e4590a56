package scrubber

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/omriharel/scrubber/pkg/scrubber/slider"
	"github.com/omriharel/scrubber/pkg/scrubber/util"
)

const internalConfigFilename = "preferences.yaml"

// has to be defined as a non-constant because we're using filepath.Join
var internalConfigFilepath = filepath.Join(logDirectory, internalConfigFilename)

// preferences is what scrubber remembers between runs, next to the logs.
// The user never edits this file; config.yaml wins over it for anything set there
type preferences struct {
	Value  *float64      `yaml:"value,omitempty"`
	Slider slider.Record `yaml:"slider"`
}

// loadPreferences reads saved preferences. A missing or broken file isn't an
// error worth stopping for, it just means starting from defaults
func loadPreferences(logger *zap.SugaredLogger, path string) preferences {
	prefs := preferences{}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debugw("No saved preferences", "path", path, "reminder", "this is fine")
		} else {
			logger.Warnw("Failed to read saved preferences", "path", path, "error", err)
		}

		return prefs
	}

	if err := yaml.Unmarshal(raw, &prefs); err != nil {
		logger.Warnw("Ignoring malformed saved preferences", "path", path, "error", err)
		return preferences{}
	}

	if prefs.Value != nil && !util.Finite(*prefs.Value) {
		prefs.Value = nil
	}

	logger.Debugw("Loaded saved preferences", "path", path, "preferences", prefs)

	return prefs
}

// savePreferences writes preferences to path, creating its directory if needed
func savePreferences(path string, prefs preferences) error {
	if err := util.EnsureDirExists(filepath.Dir(path)); err != nil {
		return fmt.Errorf("ensure preferences directory exists: %w", err)
	}

	raw, err := yaml.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}

	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}

	return nil
}
