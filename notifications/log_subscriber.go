package notifications

import (
	"context"

	"github.com/anjiri1684/driving_school/models"
	"github.com/rs/zerolog/log"
)

// LogSubscriber writes an audit line for every message.
type LogSubscriber struct{}

func (LogSubscriber) Deliver(_ context.Context, msg models.Message) error {
	log.Info().
		Str("kind", string(msg.Kind)).
		Str("recipient", msg.Recipient).
		Str("booking_id", msg.BookingID).
		Str("subject", msg.Subject).
		Msg("[notify]")
	return nil
}
