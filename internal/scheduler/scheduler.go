package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/reviewq/pkg/models"
)

// DefaultReminderTime is when the daily reminder runs, in the scheduler's zone.
const DefaultReminderTime = "09:00"

const checkTimeout = 30 * time.Second

// DueSource reports how many reviews each user owes.
type DueSource interface {
	DueSummaries(ctx context.Context, today models.Date) ([]models.DueSummary, error)
}

// Notifier interface for sending notifications
type Notifier interface {
	SendReminders(userID int64, count int) error
}

// Scheduler runs the daily due-review reminder. It only reads review state.
type Scheduler struct {
	scheduler *gocron.Scheduler
	source    DueSource
	notifier  Notifier
	loc       *time.Location
	at        string
	now       func() time.Time
	logger    *log.Logger
}

// New creates a scheduler firing every day at at (HH:MM) in loc.
func New(source DueSource, notifier Notifier, loc *time.Location, at string, logger *log.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if at == "" {
		at = DefaultReminderTime
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(loc),
		source:    source,
		notifier:  notifier,
		loc:       loc,
		at:        at,
		now:       time.Now,
		logger:    logger,
	}
}

// Start registers the reminder job and runs it in the background.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(1).Day().At(s.at).Do(s.checkAndSendReminders); err != nil {
		return fmt.Errorf("failed to schedule reminders at %s: %w", s.at, err)
	}
	s.scheduler.StartAsync()
	s.logger.Printf("Reminder scheduler started, daily at %s %s", s.at, s.loc)
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) checkAndSendReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()
	if _, err := s.RunCheck(ctx); err != nil {
		s.logger.Printf("Error checking due reviews: %v", err)
	}
}

// RunCheck sends one reminder to every user with reviews due today or
// earlier and returns how many were sent. A failed send is logged and does
// not stop the others.
func (s *Scheduler) RunCheck(ctx context.Context) (int, error) {
	today := models.DateOf(s.now(), s.loc)
	summaries, err := s.source.DueSummaries(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("failed to get due reviews: %w", err)
	}

	sent := 0
	for _, due := range summaries {
		if due.Count == 0 {
			continue
		}
		if err := s.notifier.SendReminders(due.UserID, due.Count); err != nil {
			s.logger.Printf("Error sending reminder to user %d: %v", due.UserID, err)
			continue
		}
		sent++
	}
	return sent, nil
}
