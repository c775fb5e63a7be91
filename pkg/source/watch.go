package source

import (
	"context"
	"log"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors path and calls onChange once the file has been written or
// recreated and then left alone for settle. A burst of events, such as a scan
// streamed into the file, yields a single call. It runs until ctx is
// cancelled. Errors from onChange are logged and watching continues.
func Watch(ctx context.Context, path string, settle time.Duration, onChange func(ctx context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	log.Printf("watching capture file path=%s settle=%s", path, settle)

	// settled fires once no event has arrived for settle; nil while idle.
	var settled <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-settled:
			settled = nil
			if err := onChange(ctx); err != nil {
				log.Printf("capture change handling failed path=%s: %v", path, err)
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Shell redirection truncates in place (Write); editors and
			// atomic writers replace the file (Create).
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			settled = time.After(settle)

			// Re-add the file in case it was replaced.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("capture watcher error: %v", err)
		}
	}
}
