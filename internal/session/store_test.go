package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensorsim/internal/drive"
	"github.com/banshee-data/sensorsim/internal/scene"
	"github.com/banshee-data/sensorsim/internal/sensors/lidar"
)

func newParts(t *testing.T) (*lidar.Sensor, *drive.DifferentialDrive) {
	t.Helper()
	l, err := lidar.New(lidar.DefaultConfig(), lidar.Deps{Caster: scene.NewWorld(1)})
	require.NoError(t, err)
	d, err := drive.NewDifferentialDrive(drive.DefaultConfig(), nil)
	require.NoError(t, err)
	return l, d
}

func TestStore_RegisterAndLookup(t *testing.T) {
	s := NewStore()
	assert.NotEqual(t, uuid.Nil, s.ID())
	l, d := newParts(t)

	require.NoError(t, s.AddLidar("front", l))
	require.NoError(t, s.AddLidar("rear", l))
	require.NoError(t, s.AddDrive("base", d))

	got, err := s.Lidar("front")
	require.NoError(t, err)
	assert.Same(t, l, got)

	gotDrive, err := s.Drive("base")
	require.NoError(t, err)
	assert.Same(t, d, gotDrive)

	lidars, drives := s.Names()
	assert.Equal(t, []string{"front", "rear"}, lidars)
	assert.Equal(t, []string{"base"}, drives)

	assert.ErrorIs(t, s.AddLidar("front", l), ErrExists)
	assert.ErrorIs(t, s.AddDrive("base", d), ErrExists)
	_, err = s.Lidar("side")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Drive("arm")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Error(t, s.AddLidar("nil", nil))
}

func TestStore_Close(t *testing.T) {
	s := NewStore()
	l, d := newParts(t)
	require.NoError(t, s.AddLidar("front", l))
	require.NoError(t, s.AddDrive("base", d))

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), ErrClosed)

	_, err := s.Lidar("front")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Drive("base")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.AddLidar("front", l), ErrClosed)
	assert.ErrorIs(t, s.AddDrive("base", d), ErrClosed)

	lidars, drives := s.Names()
	assert.Empty(t, lidars)
	assert.Empty(t, drives)
}

func TestStore_SessionsAreIsolated(t *testing.T) {
	a, b := NewStore(), NewStore()
	assert.NotEqual(t, a.ID(), b.ID())

	l, _ := newParts(t)
	require.NoError(t, a.AddLidar("front", l))
	_, err := b.Lidar("front")
	assert.ErrorIs(t, err, ErrNotFound)
}
