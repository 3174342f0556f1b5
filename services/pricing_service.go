package services

import (
	"github.com/anjiri1684/driving_school/apperror"
	"github.com/anjiri1684/driving_school/models"
)

// trialNumerator/trialDenominator price a trial at 60% of the hourly rate.
const (
	trialNumerator   = 6
	trialDenominator = 10
)

// QuoteLesson prices a lesson. Integer division floors, so a 75 rate gives a
// 45 trial.
func QuoteLesson(in *models.Instructor, kind models.LessonKind) (models.Quote, error) {
	if in == nil || in.PricePerHour <= 0 {
		return models.Quote{}, apperror.ErrInvalidInstructor.WithMessage("instructor has no valid hourly rate")
	}

	var amount int64
	switch kind {
	case models.LessonStandard:
		amount = in.PricePerHour
	case models.LessonTrial:
		amount = in.PricePerHour * trialNumerator / trialDenominator
	default:
		return models.Quote{}, apperror.ErrInvalidLessonKind
	}

	return models.Quote{
		InstructorID:    in.ID.String(),
		LessonKind:      kind,
		Amount:          amount,
		Currency:        in.Currency,
		DurationMinutes: kind.DurationMinutes(),
	}, nil
}
