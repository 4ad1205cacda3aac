package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"axiom-vpn/internal/domain"

	"go.uber.org/zap"
)

// ProfileKey is the application scoped key the current profile is stored
// under.
const ProfileKey = "axiom_vless_config"

// FileName is the name of the store file inside the data directory.
const FileName = "profile.json"

// ProfileStore keeps the current connection profile in memory and persists it
// as JSON. It has a single writer and any number of readers.
type ProfileStore struct {
	path    string
	mu      sync.RWMutex
	current *domain.ConnectionProfile
	logger  *zap.Logger
}

func New(dataDir string, logger *zap.Logger) *ProfileStore {
	return &ProfileStore{
		path:   filepath.Join(dataDir, FileName),
		logger: logger.With(zap.String("component", "store")),
	}
}

func (s *ProfileStore) Path() string {
	return s.path
}

// Current returns the last saved profile.
func (s *ProfileStore) Current() (domain.ConnectionProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return domain.ConnectionProfile{}, false
	}
	return *s.current, true
}

// Save replaces the current profile and persists it. Unusable profiles are
// rejected and never reach disk.
func (s *ProfileStore) Save(profile domain.ConnectionProfile) error {
	if !profile.Usable() {
		return fmt.Errorf("refusing to save profile: %w", domain.ErrMissingCredentials)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(profile); err != nil {
		return err
	}
	p := profile
	s.current = &p

	s.logger.Debug("profile saved", zap.String("address", profile.Address))
	return nil
}

// Load reads the persisted profile. A missing file leaves the store empty.
func (s *ProfileStore) Load() error {
	profile, err := s.read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	s.mu.Lock()
	s.current = profile
	s.mu.Unlock()
	return nil
}

func (s *ProfileStore) read() (*domain.ConnectionProfile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile store: %w", err)
	}

	var doc map[string]domain.ConnectionProfile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse profile store: %w", err)
	}

	profile, ok := doc[ProfileKey]
	if !ok {
		return nil, nil
	}
	if !profile.Usable() {
		return nil, fmt.Errorf("stored profile is unusable: %w", domain.ErrMissingCredentials)
	}
	return &profile, nil
}

func (s *ProfileStore) write(profile domain.ConnectionProfile) error {
	data, err := json.MarshalIndent(map[string]domain.ConnectionProfile{ProfileKey: profile}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), FileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write profile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close profile: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace profile store: %w", err)
	}
	return nil
}
