package models

import (
	"time"

	"github.com/google/uuid"
)

type Transmission string

const (
	TransmissionAutomatic Transmission = "Automatic"
	TransmissionManual    Transmission = "Manual"
	TransmissionBoth      Transmission = "Both"
)

func (t Transmission) Valid() bool {
	switch t {
	case TransmissionAutomatic, TransmissionManual, TransmissionBoth:
		return true
	}
	return false
}

// Serves reports whether an instructor with capability t can teach a student
// asking for want. An empty want matches everyone.
func (t Transmission) Serves(want Transmission) bool {
	return want == "" || t == TransmissionBoth || t == want
}

// Instructor shares its ID with the User row created at onboarding.
type Instructor struct {
	ID                uuid.UUID    `gorm:"type:uuid;primary_key" json:"id"`
	FullName          string       `gorm:"size:255;not null" json:"full_name"`
	Email             string       `gorm:"size:255;not null" json:"email"`
	Bio               *string      `gorm:"type:text" json:"bio,omitempty"`
	PricePerHour      int64        `gorm:"not null" json:"price_per_hour"`
	Currency          string       `gorm:"size:3;not null;default:'AUD'" json:"currency"`
	Transmission      Transmission `gorm:"size:16;not null" json:"transmission"`
	ServiceAreas      []string     `gorm:"serializer:json;type:text" json:"service_areas"`
	Verified          bool         `gorm:"default:false" json:"verified"`
	Available         bool         `gorm:"default:true;index" json:"available"`
	AvgRating         float32      `gorm:"default:0" json:"avg_rating"`
	ReviewCount       int          `gorm:"default:0" json:"review_count"`
	ProfilePictureURL *string      `gorm:"size:255" json:"profile_picture_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
