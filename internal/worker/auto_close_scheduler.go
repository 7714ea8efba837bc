package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/eoivo/embala-fest-sub001/internal/apierror"
	"github.com/eoivo/embala-fest-sub001/internal/repository"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// AutoCloseSettingKey is the settings row holding the trigger time as "HH:MM".
const AutoCloseSettingKey = "auto_close_time"

// AutoCloseRunner is one firing of the auto-close. *AutoCloseJob implements it.
type AutoCloseRunner interface {
	Run(ctx context.Context) (AutoCloseResult, error)
}

// ScheduleInfo describes the registered trigger.
type ScheduleInfo struct {
	Schedule    string
	Description string
	IsActive    bool
	NextRun     *time.Time
}

// AutoCloseScheduler owns the cron instance and its single entry. SetTime
// replaces the entry; a firing already in flight keeps running.
type AutoCloseScheduler struct {
	mu       sync.Mutex
	cron     *cron.Cron
	entryID  cron.EntryID
	hour     int
	minute   int
	started  bool
	baseCtx  context.Context
	job      AutoCloseRunner
	settings repository.SettingRepository
}

// NewAutoCloseScheduler builds a stopped scheduler firing at hour:minute in loc.
// Overlapping firings are skipped.
func NewAutoCloseScheduler(job AutoCloseRunner, settings repository.SettingRepository, loc *time.Location, hour, minute int) *AutoCloseScheduler {
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{}
	return &AutoCloseScheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		hour:     hour,
		minute:   minute,
		baseCtx:  context.Background(),
		job:      job,
		settings: settings,
	}
}

// Start loads the persisted trigger time (if any), registers the entry and
// starts the cron. ctx is the parent of every firing's context.
func (s *AutoCloseScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.baseCtx = ctx
	if h, m, ok := s.loadPersisted(ctx); ok {
		s.hour, s.minute = h, m
	}
	if err := validateTime(s.hour, s.minute); err != nil {
		return err
	}
	if err := s.reschedule(s.hour, s.minute); err != nil {
		return err
	}
	s.cron.Start()
	s.started = true

	log.Info().Str("schedule", cronSpec(s.hour, s.minute)).Msg("auto_close: scheduler started")
	return nil
}

// Stop halts the cron and waits for a running firing to finish or ctx to expire.
func (s *AutoCloseScheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	s.started = false
	done := s.cron.Stop()
	s.mu.Unlock()

	select {
	case <-done.Done():
		log.Info().Msg("auto_close: scheduler stopped")
	case <-ctx.Done():
		log.Warn().Msg("auto_close: stop timed out waiting for running firing")
	}
}

// SetTime validates, persists and applies a new trigger time.
func (s *AutoCloseScheduler) SetTime(ctx context.Context, hour, minute int) (ScheduleInfo, error) {
	if err := validateTime(hour, minute); err != nil {
		return ScheduleInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settings != nil {
		if err := s.settings.Set(ctx, AutoCloseSettingKey, fmt.Sprintf("%02d:%02d", hour, minute)); err != nil {
			return ScheduleInfo{}, fmt.Errorf("auto_close: persist time: %w", err)
		}
	}
	if err := s.reschedule(hour, minute); err != nil {
		return ScheduleInfo{}, err
	}
	log.Info().Str("schedule", cronSpec(hour, minute)).Msg("auto_close: schedule updated")
	return s.infoLocked(), nil
}

// Info reports the current trigger.
func (s *AutoCloseScheduler) Info() ScheduleInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoLocked()
}

func (s *AutoCloseScheduler) infoLocked() ScheduleInfo {
	info := ScheduleInfo{
		Schedule:    cronSpec(s.hour, s.minute),
		Description: describe(s.hour, s.minute),
		IsActive:    s.started && s.entryID != 0,
	}
	if info.IsActive {
		if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
			info.NextRun = &next
		}
	}
	return info
}

// reschedule swaps the cron entry. Callers hold s.mu.
func (s *AutoCloseScheduler) reschedule(hour, minute int) error {
	id, err := s.cron.AddFunc(cronSpec(hour, minute), s.fire)
	if err != nil {
		return fmt.Errorf("auto_close: register cron entry: %w", err)
	}
	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
	}
	s.entryID = id
	s.hour, s.minute = hour, minute
	return nil
}

func (s *AutoCloseScheduler) fire() {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()

	if _, err := s.job.Run(ctx); err != nil {
		log.Error().Err(err).Msg("auto_close: firing failed")
	}
}

func (s *AutoCloseScheduler) loadPersisted(ctx context.Context) (int, int, bool) {
	if s.settings == nil {
		return 0, 0, false
	}
	raw, err := s.settings.Get(ctx, AutoCloseSettingKey)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Warn().Err(err).Msg("auto_close: could not read persisted time, using configured default")
		}
		return 0, 0, false
	}
	var h, m int
	if _, err := fmt.Sscanf(raw, "%d:%d", &h, &m); err != nil || validateTime(h, m) != nil {
		log.Warn().Str("value", raw).Msg("auto_close: ignoring malformed persisted time")
		return 0, 0, false
	}
	return h, m, true
}

func validateTime(hour, minute int) error {
	if hour < 0 || hour > 23 {
		return apierror.Validation("hours must be between 0 and 23")
	}
	if minute < 0 || minute > 59 {
		return apierror.Validation("minutes must be between 0 and 59")
	}
	return nil
}

func cronSpec(hour, minute int) string { return fmt.Sprintf("%d %d * * *", minute, hour) }

func describe(hour, minute int) string {
	return fmt.Sprintf("Every day at %02d:%02d", hour, minute)
}

// cronLogger routes robfig/cron's internal logging through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
