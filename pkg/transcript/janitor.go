package transcript

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const DefaultSweepInterval = 10 * time.Second

// Janitor periodically sweeps idle sessions from a Store
type Janitor struct {
	store    *Store
	interval time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewJanitor creates a janitor for store
func NewJanitor(store *Store, interval time.Duration, logger zerolog.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	return &Janitor{
		store:    store,
		interval: interval,
		logger:   logger.With().Str("component", "janitor").Logger(),
	}
}

// Start schedules the sweep job
func (j *Janitor) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return fmt.Errorf("janitor is already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", j.interval), func() { j.SweepNow() }); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}
	c.Start()

	j.cron = c
	j.running = true

	j.logger.Info().
		Dur("interval", j.interval).
		Dur("ttl", j.store.TTL()).
		Msg("Session janitor started")

	return nil
}

// Stop stops the schedule and waits for a running sweep to finish
func (j *Janitor) Stop() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return fmt.Errorf("janitor is not running")
	}

	<-j.cron.Stop().Done()
	j.cron = nil
	j.running = false

	j.logger.Info().Msg("Session janitor stopped")

	return nil
}

// IsRunning returns whether the janitor is scheduled
func (j *Janitor) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// SweepNow immediately sweeps idle sessions
func (j *Janitor) SweepNow() int {
	removed := j.store.Sweep(j.store.Clock().Now())
	if removed > 0 {
		j.logger.Info().
			Int("removed", removed).
			Int("remaining", j.store.Len()).
			Msg("Swept idle sessions")
	}
	return removed
}
