package orion

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/oliverbestmann/onscreen/pixels"
)

// settle is the time a file must stay unchanged before it is decoded.
// Editors often write a file in multiple steps.
const settle = 50 * time.Millisecond

// Watcher decodes an image whenever its file changes. Decoding happens on
// the watcher goroutine, the results are delivered on Updates.
type Watcher struct {
	path      string
	transform func(*pixels.Buffer) *pixels.Buffer

	watcher *fsnotify.Watcher
	updates chan *pixels.Buffer

	closeOnce sync.Once
	done      chan struct{}
	stopped   chan struct{}
}

// WatchImage starts watching the image at path. The optional transform is
// applied to every decoded buffer before it is delivered.
func WatchImage(path string, transform func(*pixels.Buffer) *pixels.Buffer) (*Watcher, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// watch the directory, the file itself may be replaced by a rename
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %q: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		path:      path,
		transform: transform,
		watcher:   fsw,
		updates:   make(chan *pixels.Buffer, 1),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}

	go w.run()

	slog.Info("Watching image for changes", slog.String("path", path))

	return w, nil
}

// Updates delivers decoded images. Only the most recent image is kept if
// the receiver falls behind. The channel is closed by Close.
func (w *Watcher) Updates() <-chan *pixels.Buffer {
	return w.updates
}

func (w *Watcher) run() {
	defer close(w.stopped)
	defer close(w.updates)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}

			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(ev.Name) != w.path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}

			// restart the settle timer on every change
			if timer == nil {
				timer = time.NewTimer(settle)
			} else {
				timer.Reset(settle)
			}

			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			slog.Warn("File watcher failed", slog.Any("err", err))

		case <-fire:
			fire = nil
			w.decode()
		}
	}
}

func (w *Watcher) decode() {
	buf, err := pixels.Load(w.path)
	if err != nil {
		// keep showing the previous image
		slog.Warn("Reload failed", slog.Any("err", err))
		return
	}

	if w.transform != nil {
		buf = w.transform(buf)
	}

	// replace a buffer the receiver did not pick up yet
	select {
	case <-w.updates:
	default:
	}

	select {
	case w.updates <- buf:
	case <-w.done:
	}
}

// Close stops the watcher and waits for its goroutine to finish.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
		<-w.stopped
	})
}
