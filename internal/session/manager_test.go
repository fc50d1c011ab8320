package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/mcncl/jsonbuilder/internal/errors"
	"github.com/mcncl/jsonbuilder/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_CreateAndWith(t *testing.T) {
	m := NewManager(time.Hour, time.Hour)
	id := m.Create()
	assert.True(t, m.Exists(id))
	assert.Equal(t, 1, m.Len())

	err := m.With(id, func(s *Session) error {
		return s.SetName("0", "renamed")
	})
	require.NoError(t, err)

	var name string
	require.NoError(t, m.With(id, func(s *Session) error {
		name = s.Tree[0].Name
		return nil
	}))
	assert.Equal(t, "renamed", name)
}

func TestManager_NotFound(t *testing.T) {
	m := NewManager(time.Hour, time.Hour)
	err := m.With("missing", func(*Session) error { return nil })
	assert.True(t, errors.Is(err, apperrors.ErrSessionNotFound))
}

func TestManager_CreateWithOptions(t *testing.T) {
	m := NewManager(time.Hour, time.Hour)
	id := m.Create(WithTree(models.FieldTree{{Name: "a", Kind: models.Number}}))
	require.NoError(t, m.With(id, func(s *Session) error {
		assert.Equal(t, "a", s.Tree[0].Name)
		assert.NotEmpty(t, s.Tree[0].ID)
		return nil
	}))
}

func TestManager_Expiry(t *testing.T) {
	m := NewManager(time.Hour, time.Nanosecond)
	id := m.Create()
	time.Sleep(time.Millisecond)

	assert.False(t, m.Exists(id))
	assert.Equal(t, 1, m.Cleanup())
	assert.Equal(t, 0, m.Len())

	id = m.Create()
	time.Sleep(time.Millisecond)
	err := m.With(id, func(*Session) error { return nil })
	assert.True(t, errors.Is(err, apperrors.ErrSessionNotFound))
}

func TestManager_Remove(t *testing.T) {
	m := NewManager(time.Hour, time.Hour)
	id := m.Create()
	assert.True(t, m.Remove(id))
	assert.False(t, m.Remove(id))
	assert.False(t, m.Exists(id))
}

func TestManager_ConcurrentEdits(t *testing.T) {
	m := NewManager(time.Hour, time.Hour)
	id := m.Create()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.With(id, func(s *Session) error {
				_, err := s.AddField("")
				return err
			})
		}()
	}
	wg.Wait()

	require.NoError(t, m.With(id, func(s *Session) error {
		assert.Len(t, s.Tree, 21)
		return nil
	}))
}
