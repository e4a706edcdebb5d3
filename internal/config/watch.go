package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watch re-reads the config file whenever it changes on disk and hands the
// decoded result to onChange. Invalid or unreadable revisions go to onError
// and the previous config stays in effect. Load must have been called first.
func (l *Loader) Watch(onChange func(*Config), onError func(error)) error {
	if l.v == nil {
		return fmt.Errorf("config not loaded")
	}
	if l.v.ConfigFileUsed() == "" {
		return fmt.Errorf("no config file to watch")
	}

	v := l.v
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err == nil {
			err = cfg.Validate()
		}
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("failed to reload %s: %w", e.Name, err))
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}
