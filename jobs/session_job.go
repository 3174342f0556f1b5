package jobs

import (
	"context"

	"github.com/rs/zerolog/log"
)

// ReapFlowSessions drops booking-flow sessions nobody has touched lately.
func (r *Runner) ReapFlowSessions(_ context.Context) {
	if n := r.Sessions.Reap(); n > 0 {
		log.Info().Int("sessions", n).Msg("Reaped idle booking sessions")
	}
}
