// Package state carries information from the restore step of a pipeline to the save
// step, which run as separate processes.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// State is what the restore step records for the save step
type State struct {
	// AlreadyExistingImages are the images that were present before the restore
	AlreadyExistingImages []string `yaml:"alreadyExistingImages"`
	// RestoredKey is the key of the root entry that was restored, or empty
	RestoredKey string `yaml:"restoredKey"`
	// RestoredImages are the images that appeared through the restore
	RestoredImages []string `yaml:"restoredImages"`
}

// Load reads the state file. A file that does not exist yields an empty state.
func Load(file string) (State, error) {
	st := State{}
	b, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		log.Debugf("state file %s not found", file)
		return st, nil
	} else if err != nil {
		return st, fmt.Errorf("error reading state file: %s, the error was: %w", file, err)
	}
	if err := yaml.Unmarshal(b, &st); err != nil {
		return st, fmt.Errorf("error parsing state file: %s, the error was: %w", file, err)
	}
	return st, nil
}

// Save writes the state file, replacing it
func Save(file string, st State) error {
	b, err := yaml.Marshal(st)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return err
	}
	return os.WriteFile(file, b, 0644)
}

// Update loads the state file, applies 'fn' and saves the result
func Update(file string, fn func(*State)) error {
	st, err := Load(file)
	if err != nil {
		return err
	}
	fn(&st)
	return Save(file, st)
}
