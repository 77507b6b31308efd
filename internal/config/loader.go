package config

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Loader reads a YAML config file and watches it for changes.
type Loader struct {
	path     string
	mu       sync.RWMutex
	current  *GameConfig
	onChange []func(*GameConfig)
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(path string, logger *slog.Logger) (*Loader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{path: path, logger: logger}
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = cfg
	return l, nil
}

// Config returns the current (latest) configuration.
func (l *Loader) Config() *GameConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the config reloads.
func (l *Loader) OnChange(fn func(*GameConfig)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that hot-reloads the config on file changes.
// Call the returned stop function to clean up.
func (l *Loader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", l.path, err)
	}
	l.watcher = w

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if _, err := l.Reload(); err != nil {
						l.logger.Warn("config reload failed, keeping previous config", "path", l.path, "err", err)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.logger.Warn("config watcher error", "err", err)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

// Reload forces an immediate re-read of the config file.
// A file that fails to parse or validate leaves the current config in place.
func (l *Loader) Reload() (*GameConfig, error) {
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	callbacks := make([]func(*GameConfig), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
	return cfg, nil
}

func (l *Loader) load() (*GameConfig, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", l.path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", l.path, err)
	}
	return cfg, nil
}

// Parse decodes YAML and applies defaults. It does not validate.
func Parse(data []byte) (*GameConfig, error) {
	var cfg GameConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ApplyDefaults fills zero-valued tunables.
func ApplyDefaults(cfg *GameConfig) {
	e := &cfg.Engine
	if e.TickHz == 0 {
		e.TickHz = 60
	}
	if e.BonusWindow == 0 {
		e.BonusWindow = 0.15
	}
	if e.CompletionWindow == 0 {
		e.CompletionWindow = 0.3
	}
	if e.WorkerCooldown == 0 {
		e.WorkerCooldown = 0.3
	}
	if e.SimulationWorkers == 0 {
		e.SimulationWorkers = 4
	}
	if e.SimulationQueue == 0 {
		e.SimulationQueue = 64
	}
	if e.SimulationStep == 0 {
		e.SimulationStep = 0.02
	}
	if e.SimulationMaxSeconds == 0 {
		e.SimulationMaxSeconds = 3600
	}
	if e.SimulationTimeoutMs == 0 {
		e.SimulationTimeoutMs = 5000
	}
	if e.SessionTTLSeconds == 0 {
		e.SessionTTLSeconds = 300
	}
	for i := range cfg.Stages {
		st := &cfg.Stages[i]
		if st.TimeLimit == 0 {
			st.TimeLimit = 60
		}
		if st.InitialWorkerCount == 0 {
			st.InitialWorkerCount = 1
		}
		for j := range st.Items {
			if st.Items[j].Count == 0 {
				st.Items[j].Count = 1
			}
		}
	}
}
