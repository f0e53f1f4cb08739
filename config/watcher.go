package config

import (
	"fmt"
	"github.com/fsnotify/fsnotify"
	"path/filepath"
	"sync"
	"time"
)

const DebounceDelay = 100 * time.Millisecond

// Watcher keeps the [settings] section of a config file current.
// Other sections are read once at startup.
type Watcher struct {
	path string

	locker   sync.Locker
	settings Settings
	handlers []func(Settings)

	fsWatcher *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
}

func NewWatcher(path string, initial Settings) *Watcher {
	return &Watcher{
		path:     path,
		locker:   &sync.Mutex{},
		settings: initial,
		done:     make(chan struct{}),
	}
}

func (w *Watcher) Settings() Settings {
	w.locker.Lock()
	defer w.locker.Unlock()
	return w.settings
}

// OnChange registers a handler called with the new settings after every successful reload.
func (w *Watcher) OnChange(handler func(Settings)) {
	w.locker.Lock()
	defer w.locker.Unlock()
	w.handlers = append(w.handlers, handler)
}

func (w *Watcher) Open() error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// editors replace files instead of writing in place, so watch the directory
	err = fsWatcher.Add(filepath.Dir(w.path))
	if err != nil {
		_ = fsWatcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	w.fsWatcher = fsWatcher

	go w.loop()

	return nil
}

func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		if w.fsWatcher != nil {
			err = w.fsWatcher.Close()
		}
	})
	return err
}

func (w *Watcher) loop() {
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(DebounceDelay, w.Reload)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Println("watch error:", err)
		}
	}
}

// Reload re-reads the file and applies its settings section.
// A file that fails to parse or validate leaves the current settings in place.
func (w *Watcher) Reload() {
	conf, err := Load(w.path)
	if err != nil {
		log.Println("reload settings:", err)
		return
	}

	w.locker.Lock()
	if conf.Settings == w.settings {
		w.locker.Unlock()
		return
	}
	w.settings = conf.Settings
	handlers := make([]func(Settings), len(w.handlers))
	copy(handlers, w.handlers)
	w.locker.Unlock()

	log.Println("settings changed:", conf.Settings)

	for _, handler := range handlers {
		handler(conf.Settings)
	}
}
