package tzwatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alarmclock/backend/internal/logging"
	"alarmclock/backend/internal/scheduler"
)

type fakeRefresher struct {
	mu       sync.Mutex
	loc      *time.Location
	triggers []scheduler.Trigger
}

func (f *fakeRefresher) Location() *time.Location {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loc
}

func (f *fakeRefresher) SetLocation(loc *time.Location) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loc = loc
}

func (f *fakeRefresher) RefreshAll(_ context.Context, trigger scheduler.Trigger) (scheduler.RefreshReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, trigger)
	return scheduler.RefreshReport{Trigger: trigger}, nil
}

func (f *fakeRefresher) refreshes() []scheduler.Trigger {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]scheduler.Trigger(nil), f.triggers...)
}

func TestWatcher_RefreshesOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "localtime")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	refresher := &fakeRefresher{loc: time.UTC}
	w := New(path, refresher, logging.Discard())
	w.debounce = 10 * time.Millisecond
	w.load = func(string) (*time.Location, error) {
		return time.FixedZone("Test/Plus9", 9*3600), nil
	}
	require.NoError(t, w.Start(context.Background()))
	defer w.Close()

	// Writes to siblings are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("v3"), 0o644))

	require.Eventually(t, func() bool { return len(refresher.refreshes()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Test/Plus9", refresher.Location().String())
	assert.Equal(t, []scheduler.Trigger{scheduler.TriggerTimezoneChanged}, refresher.refreshes())
}

func TestWatcher_ReloadSkipsUnchangedOrBrokenZone(t *testing.T) {
	refresher := &fakeRefresher{loc: time.UTC}
	w := New("/nonexistent/localtime", refresher, logging.Discard())

	w.load = func(string) (*time.Location, error) { return time.UTC, nil }
	w.reload(context.Background())

	w.load = func(string) (*time.Location, error) { return nil, errors.New("corrupt") }
	w.reload(context.Background())

	assert.Empty(t, refresher.refreshes())
	assert.Equal(t, time.UTC, refresher.Location())
}

func TestLoadLocation_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "localtime")
	require.NoError(t, os.WriteFile(path, []byte("not a tzfile"), 0o644))
	_, err := LoadLocation(path)
	assert.Error(t, err)
}
