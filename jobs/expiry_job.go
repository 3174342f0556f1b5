package jobs

import (
	"context"

	"github.com/rs/zerolog/log"
)

// ExpireAbandonedBookings releases slots held by PENDING bookings whose
// checkout never finished.
func (r *Runner) ExpireAbandonedBookings(ctx context.Context) {
	n, err := r.Ledger.ExpireStale(ctx)
	if err != nil {
		log.Error().Err(err).Int("expired", n).Msg("🔥 Error expiring abandoned bookings")
		return
	}
	if n > 0 {
		log.Info().Int("expired", n).Msg("Released abandoned bookings")
	}
}
