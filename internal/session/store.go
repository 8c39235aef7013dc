// Package session owns the sensors and drives of one simulation run.
// It replaces process-wide registries: every component is reachable only
// through the Store it was added to, and Close releases all of them.
package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/sensorsim/internal/drive"
	"github.com/banshee-data/sensorsim/internal/monitoring"
	"github.com/banshee-data/sensorsim/internal/sensors/lidar"
)

var (
	// ErrClosed is returned by every operation on a closed store.
	ErrClosed = errors.New("session: store closed")
	// ErrNotFound is returned when no component has the given name.
	ErrNotFound = errors.New("session: not found")
	// ErrExists is returned when a name is already registered.
	ErrExists = errors.New("session: name already registered")
)

var logf = monitoring.Component("session")

// Store is the resource scope of one simulation session. It is safe for
// concurrent use.
type Store struct {
	id uuid.UUID

	mu     sync.RWMutex
	closed bool
	lidars map[string]*lidar.Sensor
	drives map[string]*drive.DifferentialDrive
}

// NewStore opens a session with a fresh random ID.
func NewStore() *Store {
	s := &Store{
		id:     uuid.New(),
		lidars: make(map[string]*lidar.Sensor),
		drives: make(map[string]*drive.DifferentialDrive),
	}
	logf("session %s opened", s.id)
	return s
}

// ID returns the session identifier.
func (s *Store) ID() uuid.UUID { return s.id }

// AddLidar registers a sensor under name.
func (s *Store) AddLidar(name string, l *lidar.Sensor) error {
	if l == nil {
		return fmt.Errorf("lidar %q is nil", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.lidars[name]; ok {
		return fmt.Errorf("lidar %q: %w", name, ErrExists)
	}
	s.lidars[name] = l
	return nil
}

// Lidar returns the sensor registered under name.
func (s *Store) Lidar(name string) (*lidar.Sensor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	l, ok := s.lidars[name]
	if !ok {
		return nil, fmt.Errorf("lidar %q: %w", name, ErrNotFound)
	}
	return l, nil
}

// AddDrive registers a drive under name.
func (s *Store) AddDrive(name string, d *drive.DifferentialDrive) error {
	if d == nil {
		return fmt.Errorf("drive %q is nil", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.drives[name]; ok {
		return fmt.Errorf("drive %q: %w", name, ErrExists)
	}
	s.drives[name] = d
	return nil
}

// Drive returns the drive registered under name.
func (s *Store) Drive(name string) (*drive.DifferentialDrive, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	d, ok := s.drives[name]
	if !ok {
		return nil, fmt.Errorf("drive %q: %w", name, ErrNotFound)
	}
	return d, nil
}

// Names returns the sorted lidar and drive names.
func (s *Store) Names() (lidars, drives []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for n := range s.lidars {
		lidars = append(lidars, n)
	}
	for n := range s.drives {
		drives = append(drives, n)
	}
	sort.Strings(lidars)
	sort.Strings(drives)
	return lidars, drives
}

// Close clears the store. Closing twice returns ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	n := len(s.lidars) + len(s.drives)
	clear(s.lidars)
	clear(s.drives)
	logf("session %s closed, released %d components", s.id, n)
	return nil
}
