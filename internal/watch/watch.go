// Package watch reacts to changes of files on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangedError is the cancel cause of a context returned by UntilChanged.
type ChangedError struct {
	Event fsnotify.Event
}

func (e *ChangedError) Error() string {
	return fmt.Sprintf("%s changed (%s)", e.Event.Name, e.Event.Op)
}

// UntilChanged returns a context that is canceled once path is written,
// removed or renamed. Attribute-only changes are ignored. context.Cause
// reports a *ChangedError, or the watcher error that stopped the watch.
//
// path must exist. On error the returned context and cancel are nil.
func UntilChanged(ctx context.Context, path string) (context.Context, context.CancelFunc, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, nil, fmt.Errorf("watch %s: %w", path, err)
	}

	cctx, cancel := context.WithCancelCause(ctx)
	go func() {
		defer w.Close()
		for {
			select {
			case <-cctx.Done():
				return
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				cancel(err)
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op == fsnotify.Chmod {
					continue
				}
				cancel(&ChangedError{Event: event})
				return
			}
		}
	}()
	return cctx, func() { cancel(nil) }, nil
}

// OnChange calls fn after path is created or written, once the file has
// been quiet for settle. The parent directory is watched, so path need not
// exist yet. It blocks until ctx is done.
func OnChange(ctx context.Context, path string, settle time.Duration, fn func(fsnotify.Event)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending fsnotify.Event
	)
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return err
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			pending = event
			stop()
			timer = time.NewTimer(settle)
			fire = timer.C
		case <-fire:
			fire = nil
			fn(pending)
		}
	}
}
