package jobs

import (
	"context"

	"github.com/rs/zerolog/log"
)

// CompleteFinishedLessons marks confirmed lessons whose end time has passed
// as COMPLETED.
func (r *Runner) CompleteFinishedLessons(ctx context.Context) {
	n, err := r.Ledger.CompleteFinished(ctx)
	if err != nil {
		log.Error().Err(err).Int("completed", n).Msg("🔥 Error completing finished lessons")
		return
	}
	if n > 0 {
		log.Info().Msgf("Marked %d booking(s) as completed.", n)
	}
}
