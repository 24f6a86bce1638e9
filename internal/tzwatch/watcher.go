// Package tzwatch notices host timezone changes by watching the zoneinfo
// link (usually /etc/localtime) and hands the new location to the scheduler.
package tzwatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"alarmclock/backend/internal/logging"
	"alarmclock/backend/internal/scheduler"
)

// Refresher is the part of the scheduler the watcher drives.
type Refresher interface {
	Location() *time.Location
	SetLocation(loc *time.Location)
	RefreshAll(ctx context.Context, trigger scheduler.Trigger) (scheduler.RefreshReport, error)
}

type Watcher struct {
	path      string
	refresher Refresher
	log       *logging.Logger
	debounce  time.Duration
	load      func(path string) (*time.Location, error)

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(path string, refresher Refresher, logger *logging.Logger) *Watcher {
	return &Watcher{
		path:      path,
		refresher: refresher,
		log:       logger,
		debounce:  500 * time.Millisecond,
		load:      LoadLocation,
	}
}

// Start watches the parent directory, since package managers replace the
// link rather than writing through it.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.watcher = fw

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.loop(ctx)
	w.log.Infof("watching timezone path=%s", w.path)
	return nil
}

func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	var err error
	if w.watcher != nil {
		err = w.watcher.Close()
	}
	w.wg.Wait()
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.log.Debugf("fsnotify event=%s file=%s", event.Op, event.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.reload(ctx)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Errorf("fsnotify error=%v", err)
		}
	}
}

// reload applies the new location and refreshes every alarm. An unchanged
// zone is ignored.
func (w *Watcher) reload(ctx context.Context) {
	loc, err := w.load(w.path)
	if err != nil {
		w.log.Warnf("reload timezone path=%s error=%v", w.path, err)
		return
	}
	if current := w.refresher.Location(); current != nil && current.String() == loc.String() {
		return
	}
	w.refresher.SetLocation(loc)
	report, err := w.refresher.RefreshAll(ctx, scheduler.TriggerTimezoneChanged)
	if err != nil {
		w.log.Errorf("refresh after timezone change error=%v", err)
		return
	}
	w.log.Infof("timezone changed zone=%s alarms=%d", loc, report.Alarms)
}

// LoadLocation reads a zoneinfo file. The zone is named after the link
// target when it points into a zoneinfo tree.
func LoadLocation(path string) (*time.Location, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zoneinfo: %w", err)
	}
	name := "Local"
	if target, err := filepath.EvalSymlinks(path); err == nil {
		if _, zone, found := strings.Cut(target, "zoneinfo/"); found && zone != "" {
			name = zone
		}
	}
	loc, err := time.LoadLocationFromTZData(name, data)
	if err != nil {
		return nil, fmt.Errorf("parse zoneinfo %s: %w", path, err)
	}
	return loc, nil
}
