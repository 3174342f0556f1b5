package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anjiri1684/driving_school/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// activeSlotIndex is the storage-level arbiter of the one-active-booking-per-slot rule.
const activeSlotIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_active_slot
ON bookings (instructor_id, scheduled_at)
WHERE status IN ('PENDING', 'CONFIRMED')`

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Migrate() error {
	if err := s.db.AutoMigrate(
		&models.User{},
		&models.Instructor{},
		&models.BlockedSlot{},
		&models.Booking{},
	); err != nil {
		return err
	}
	return s.db.Exec(activeSlotIndex).Error
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) CreateInstructor(ctx context.Context, in *models.Instructor) error {
	return translate(s.db.WithContext(ctx).Create(in).Error)
}

func (s *GormStore) SaveInstructor(ctx context.Context, in *models.Instructor) error {
	res := s.db.WithContext(ctx).Model(&models.Instructor{}).Where("id = ?", in.ID).Select("*").Omit("created_at").Updates(in)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) GetInstructor(ctx context.Context, id uuid.UUID) (*models.Instructor, error) {
	var in models.Instructor
	if err := s.db.WithContext(ctx).First(&in, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &in, nil
}

func (s *GormStore) ListAvailableInstructors(ctx context.Context) ([]models.Instructor, error) {
	var out []models.Instructor
	err := s.db.WithContext(ctx).
		Where("available = ?", true).
		Order("created_at asc, id asc").
		Find(&out).Error
	return out, translate(err)
}

func (s *GormStore) BlockSlot(ctx context.Context, b *models.BlockedSlot) error {
	b.StartsAt = b.StartsAt.UTC()
	return translate(s.db.WithContext(ctx).Create(b).Error)
}

func (s *GormStore) UnblockSlot(ctx context.Context, instructorID uuid.UUID, at time.Time) error {
	res := s.db.WithContext(ctx).
		Where("instructor_id = ? AND starts_at = ?", instructorID, at.UTC()).
		Delete(&models.BlockedSlot{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) BlockedInstructorsAt(ctx context.Context, at time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&models.BlockedSlot{}).
		Where("starts_at = ?", at.UTC()).
		Pluck("instructor_id", &ids).Error
	return ids, translate(err)
}

// InsertIfSlotFree locks the instructor row so concurrent reservations for
// the same instructor queue up, re-checks the slot and inserts. The partial
// unique index still rejects anything that slips past the lock.
func (s *GormStore) InsertIfSlotFree(ctx context.Context, b *models.Booking) error {
	b.ScheduledAt = b.ScheduledAt.UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var in models.Instructor
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&in, "id = ?", b.InstructorID).Error; err != nil {
			return translate(err)
		}

		var count int64
		if err := tx.Model(&models.Booking{}).
			Where("instructor_id = ? AND scheduled_at = ? AND status IN ?", b.InstructorID, b.ScheduledAt, models.ActiveStatuses).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrSlotTaken
		}

		return bookingInsertError(tx.Create(b).Error)
	})
}

func (s *GormStore) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	if err := s.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (s *GormStore) TransitionStatus(ctx context.Context, c StatusChange) (*models.Booking, error) {
	updates := map[string]any{"status": c.To, "updated_at": c.At}
	switch c.To {
	case models.StatusConfirmed:
		updates["confirmed_at"] = c.At
		updates["payment_ref"] = c.Ref
	case models.StatusCancelled:
		updates["cancelled_at"] = c.At
		updates["cancel_reason"] = c.Reason
	case models.StatusCompleted:
		updates["completed_at"] = c.At
	}

	var out models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status IN ?", c.ID, c.From).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&models.Booking{}).Where("id = ?", c.ID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return ErrNotFound
			}
			return ErrStatusMismatch
		}
		return tx.First(&out, "id = ?", c.ID).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (s *GormStore) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]models.Booking, error) {
	return s.listBookings(ctx, "student_id = ?", studentID)
}

func (s *GormStore) ListByInstructor(ctx context.Context, instructorID uuid.UUID) ([]models.Booking, error) {
	return s.listBookings(ctx, "instructor_id = ?", instructorID)
}

func (s *GormStore) ActiveInstructorsAt(ctx context.Context, at time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&models.Booking{}).
		Where("scheduled_at = ? AND status IN ?", at.UTC(), models.ActiveStatuses).
		Pluck("instructor_id", &ids).Error
	return ids, translate(err)
}

func (s *GormStore) PendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	return s.listBookings(ctx, "status = ? AND created_at < ?", models.StatusPending, cutoff)
}

func (s *GormStore) ConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	return s.listBookings(ctx, "status = ? AND scheduled_at >= ? AND scheduled_at < ?", models.StatusConfirmed, from.UTC(), to.UTC())
}

func (s *GormStore) ConfirmedStartedBefore(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	return s.listBookings(ctx, "status = ? AND scheduled_at < ?", models.StatusConfirmed, cutoff.UTC())
}

func (s *GormStore) listBookings(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	var out []models.Booking
	err := s.db.WithContext(ctx).
		Where(query, args...).
		Order("created_at asc, id asc").
		Find(&out).Error
	return out, translate(err)
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(u.Email)
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *GormStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isUniqueViolation(err):
		return ErrDuplicate
	}
	return err
}

// bookingInsertError maps a hit on idx_bookings_active_slot to ErrSlotTaken.
func bookingInsertError(err error) error {
	if isUniqueViolation(err) {
		return ErrSlotTaken
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
