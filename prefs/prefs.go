// Package prefs persists small pieces of client-local state between runs.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const stateRelPath = "leafscan/device.yaml"

// Device is the last device the user connected to.
type Device struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// Store reads and writes Device to a single YAML file. Safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	path string
}

// Default opens the store under the XDG state directory.
func Default() (*Store, error) {
	path, err := xdg.StateFile(stateRelPath)
	if err != nil {
		return nil, fmt.Errorf("resolve state file: %w", err)
	}
	return &Store{path: path}, nil
}

// Open returns a store backed by path.
func Open(path string) *Store { return &Store{path: path} }

// Path returns the backing file.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// LastDevice returns the saved device. ok is false when nothing was saved yet.
func (s *Store) LastDevice() (d Device, ok bool, err error) {
	if s == nil {
		return Device{}, false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Device{}, false, nil
		}
		return Device{}, false, err
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Device{}, false, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if d.Address == "" {
		return Device{}, false, nil
	}
	return d, true, nil
}

// SaveDevice persists d, replacing any previous value.
func (s *Store) SaveDevice(d Device) error {
	if s == nil {
		return nil
	}
	data, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.WriteFile(s.path, data, 0o600)
}
