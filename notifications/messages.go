package notifications

import (
	"fmt"
	"strings"

	"github.com/anjiri1684/driving_school/models"
)

const lessonTimeLayout = "Monday 2 January 2006 at 3:04 PM"

func (d *Dispatcher) compose(kind models.MessageKind, to Recipient, b models.Booking) models.Message {
	when := b.ScheduledAt.In(d.loc).Format(lessonTimeLayout)
	lesson := strings.ToLower(string(b.LessonKind))
	name := to.Name
	if name == "" {
		name = "there"
	}

	var subject, body string
	switch kind {
	case models.KindConfirmation:
		subject = "Your Driving Lesson is Confirmed!"
		body = fmt.Sprintf(
			"<h1>Lesson Confirmed</h1><p>Hi %s,</p><p>Your %d-minute %s lesson on %s is confirmed.</p><p><b>Pickup:</b> %s<br><b>Paid:</b> %s<br><b>Reference:</b> %s</p>",
			name, b.DurationMinutes, lesson, when, location(b), formatAmount(b.Price, b.Currency), b.ID,
		)
	case models.KindCancellation:
		subject = "Your Driving Lesson was Cancelled"
		body = fmt.Sprintf(
			"<h1>Lesson Cancelled</h1><p>Hi %s,</p><p>Your %s lesson on %s has been cancelled.</p>",
			name, lesson, when,
		)
		if b.CancelReason != nil && *b.CancelReason != "" {
			body += fmt.Sprintf("<p><b>Reason:</b> %s</p>", *b.CancelReason)
		}
	case models.KindReminder:
		subject = "Reminder: Your Driving Lesson Starts in 1 Hour!"
		body = fmt.Sprintf(
			"<h1>Lesson Reminder</h1><p>Hi %s,</p><p>This is a friendly reminder that your %s lesson starts at %s.</p><p><b>Pickup:</b> %s</p>",
			name, lesson, when, location(b),
		)
	}

	return models.Message{
		Recipient:   to.Email,
		RecipientID: to.ID,
		Subject:     subject,
		Body:        body,
		Timestamp:   d.now(),
		Kind:        kind,
		BookingID:   b.ID.String(),
	}
}

func location(b models.Booking) string {
	if b.Location == "" {
		return "to be arranged with your instructor"
	}
	return b.Location
}

func formatAmount(amount int64, currency string) string {
	if currency == "" {
		return fmt.Sprintf("%d", amount)
	}
	return fmt.Sprintf("%s %d", currency, amount)
}
