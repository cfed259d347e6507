package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendar_bot/internal/config"
)

func TestSettingsStore_LoadMissing(t *testing.T) {
	store := NewSettingsStore(filepath.Join(t.TempDir(), "settings.json"))

	settings, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, settings)
}

func TestSettingsStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	store := NewSettingsStore(path)

	settings := config.DefaultSettings()
	settings.CalendarID = "team@example.com"
	settings.YouTubePlatformLinks = map[string]string{"Kick": "https://kick.com/x"}

	require.NoError(t, store.Save(context.Background(), &settings))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, settings, *loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestSettingsStore_MissingKeysKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"calendar_id": "cal", "daily_summary_enabled": false}`), 0o644))

	loaded, err := NewSettingsStore(path).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "cal", loaded.CalendarID)
	assert.False(t, loaded.DailySummaryEnabled)
	assert.Equal(t, "09:00", loaded.DailySummaryTime)
	assert.Equal(t, 5, loaded.CalendarCheckIntervalMinutes)
}

func TestSettingsStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))

	_, err := NewSettingsStore(path).Load(context.Background())
	assert.Error(t, err)
}
