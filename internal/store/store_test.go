package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"axiom-vpn/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testProfile() domain.ConnectionProfile {
	return domain.ConnectionProfile{
		Identity:         "abc123",
		Address:          "example.com",
		Port:             443,
		CamouflageDomain: "learn.microsoft.com",
		PublicKey:        "KEYVALUE",
		ShortID:          "shortid",
	}
}

func TestProfileStore_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, zap.NewNop())

	_, ok := s.Current()
	assert.False(t, ok)

	require.NoError(t, s.Save(testProfile()))

	current, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, testProfile(), current)

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	var doc map[string]domain.ConnectionProfile
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, testProfile(), doc[ProfileKey])

	reopened := New(dir, zap.NewNop())
	require.NoError(t, reopened.Load())
	current, ok = reopened.Current()
	require.True(t, ok)
	assert.Equal(t, testProfile(), current)
}

func TestProfileStore_RejectsUnusableProfile(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, zap.NewNop())
	require.NoError(t, s.Save(testProfile()))

	unusable := testProfile()
	unusable.PublicKey = ""
	err := s.Save(unusable)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingCredentials))

	current, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "KEYVALUE", current.PublicKey)
}

func TestProfileStore_LoadMissingFile(t *testing.T) {
	s := New(t.TempDir(), zap.NewNop())
	require.NoError(t, s.Load())
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestProfileStore_LoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0644))

	s := New(dir, zap.NewNop())
	assert.Error(t, s.Load())
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestProfileStore_WatchReloadsExternalEdits(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, zap.NewNop())
	require.NoError(t, s.Save(testProfile()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(200 * time.Millisecond)

	edited := testProfile()
	edited.Address = "edited.example.com"
	data, err := json.Marshal(map[string]domain.ConnectionProfile{ProfileKey: edited})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), data, 0644))

	assert.Eventually(t, func() bool {
		current, _ := s.Current()
		return current.Address == "edited.example.com"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
