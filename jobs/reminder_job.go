package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	reminderLead   = 60 * time.Minute
	reminderWindow = 5 * time.Minute
)

// SendLessonReminders notifies both parties of lessons starting in about an
// hour. The window matches the five-minute schedule so each lesson is picked
// up by exactly one run.
func (r *Runner) SendLessonReminders(ctx context.Context) {
	lowerBound := r.now().Add(reminderLead)
	upperBound := lowerBound.Add(reminderWindow)

	upcoming, err := r.Bookings.ConfirmedStartingBetween(ctx, lowerBound, upperBound)
	if err != nil {
		log.Error().Err(err).Msg("🔥 Error checking for upcoming lessons")
		return
	}

	for _, b := range upcoming {
		log.Info().Str("booking_id", b.ID.String()).Msg("Sending reminder")
		if err := r.Reminder.Remind(ctx, b); err != nil {
			log.Warn().Err(err).Str("booking_id", b.ID.String()).Msg("Reminder partly failed")
		}
	}
}
