package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfront/pkg/shoptypes"
)

func TestSession_StartsAsGuest(t *testing.T) {
	s := New(t.TempDir())
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Token())
	assert.Nil(t, s.User())
}

func TestSession_SetAndClear(t *testing.T) {
	s := New(t.TempDir())

	s.Set("tok-1", &shoptypes.UserProfile{ID: "u1", Email: "a@example.com"})
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "tok-1", s.Token())
	require.NotNil(t, s.User())
	assert.Equal(t, "u1", s.User().ID)

	s.Clear()
	assert.False(t, s.IsAuthenticated())
	assert.Nil(t, s.User())
}

func TestSession_PersistsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()

	first := New(dir)
	first.Set("tok-persisted", &shoptypes.UserProfile{ID: "u1"})

	// A fresh instance over the same directory rehydrates the session.
	second := New(dir)
	assert.Equal(t, "tok-persisted", second.Token())
	require.NotNil(t, second.User())
	assert.Equal(t, "u1", second.User().ID)
}

func TestSession_CorruptFileStartsUnauthenticated(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{broken"), 0600))

	s := New(dir)
	assert.False(t, s.IsAuthenticated())
}

func TestSession_UnknownFieldsIgnored(t *testing.T) {
	dir := t.TempDir()
	content := `{"token":"tok-x","user":{"id":"u9"},"futureField":{"nested":true}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0600))

	s := New(dir)
	assert.Equal(t, "tok-x", s.Token())
}

func TestSession_OnChangeNotified(t *testing.T) {
	s := NewInMemory()

	var events int
	s.OnChange(func() { events++ })

	s.Set("tok", nil)
	s.Clear()
	assert.Equal(t, 2, events)
}

func TestSession_StorageFailureDegradesToMemory(t *testing.T) {
	dir := t.TempDir()
	// A file standing where the state directory should be makes MkdirAll fail.
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(blocked, []byte("file"), 0600))

	s := New(filepath.Join(blocked, "state"))
	s.Set("tok-mem", nil)

	// The session still works in memory.
	assert.Equal(t, "tok-mem", s.Token())
}
