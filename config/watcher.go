package config

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

var (
	gLock      sync.RWMutex
	gConfig    *Config
	gListeners []func(*Config)
)

// Get returns the current configuration, or nil before Load or Set.
func Get() *Config {
	gLock.RLock()
	defer gLock.RUnlock()
	return gConfig
}

// Set replaces the current configuration and runs the change callbacks.
func Set(config *Config) {
	gLock.Lock()
	gConfig = config
	ls := append([]func(*Config){}, gListeners...)
	gLock.Unlock()
	for _, l := range ls {
		l(config)
	}
}

// OnChange registers a callback run after every configuration change.
func OnChange(fn func(*Config)) {
	gLock.Lock()
	defer gLock.Unlock()
	gListeners = append(gListeners, fn)
}

func waitForChange(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-watcher.Errors:
		return err
	case <-watcher.Events:
	}
	// Let the writer finish before reading.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Second / 10):
	}
	return ctx.Err()
}

// Load reads the config file and keeps reloading it whenever it changes until
// the context is done. A file that fails to load keeps the previous config.
func Load(ctx context.Context, path string) error {
	config, err := FromFile(path)
	if err != nil {
		return err
	}
	Set(config)
	go func() {
		for ctx.Err() == nil {
			if err := waitForChange(ctx, path); err != nil {
				if ctx.Err() == nil {
					log.Errorf("Error waiting for file change: %v", err)
					time.Sleep(time.Second)
				}
				continue
			}

			config, err := FromFile(path)
			if err != nil {
				log.Errorf("Failed to load new config: %v", err)
				continue
			}
			Set(config)
		}
	}()
	return nil
}
