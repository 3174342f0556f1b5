package models

import "time"

type MessageKind string

const (
	KindConfirmation MessageKind = "confirmation"
	KindCancellation MessageKind = "cancellation"
	KindReminder     MessageKind = "reminder"
)

type Message struct {
	Recipient   string      `json:"recipient"`
	RecipientID string      `json:"recipient_id,omitempty"`
	Subject     string      `json:"subject"`
	Body        string      `json:"body"`
	Timestamp   time.Time   `json:"timestamp"`
	Kind        MessageKind `json:"kind"`
	BookingID   string      `json:"booking_id"`
}
