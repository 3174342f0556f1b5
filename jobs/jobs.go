package jobs

import (
	"context"
	"time"

	"github.com/anjiri1684/driving_school/models"
	"github.com/anjiri1684/driving_school/repository"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const jobTimeout = 2 * time.Minute

// Sweeper is the part of the ledger the jobs drive.
type Sweeper interface {
	ExpireStale(ctx context.Context) (int, error)
	CompleteFinished(ctx context.Context) (int, error)
}

type Reminder interface {
	Remind(ctx context.Context, b models.Booking) error
}

type SessionReaper interface {
	Reap() int
}

type Runner struct {
	Ledger   Sweeper
	Bookings repository.BookingStore
	Reminder Reminder
	Sessions SessionReaper
	Now      func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Schedule registers every job on c. The caller starts and stops c.
func (r *Runner) Schedule(c *cron.Cron) error {
	specs := []struct {
		spec string
		name string
		run  func(context.Context)
	}{
		{"@every 1m", "ExpireAbandonedBookings", r.ExpireAbandonedBookings},
		{"*/5 * * * *", "SendLessonReminders", r.SendLessonReminders},
		{"*/5 * * * *", "CompleteFinishedLessons", r.CompleteFinishedLessons},
		{"@every 5m", "ReapFlowSessions", r.ReapFlowSessions},
	}
	for _, s := range specs {
		run, name := s.run, s.name
		if _, err := c.AddFunc(s.spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			log.Debug().Str("job", name).Msg("Running job")
			run(ctx)
		}); err != nil {
			return err
		}
	}
	log.Info().Int("jobs", len(specs)).Msg("✅ Cron jobs scheduled successfully.")
	return nil
}
