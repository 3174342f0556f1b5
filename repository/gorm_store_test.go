package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslate(t *testing.T) {
	dbDown := errors.New("dial tcp 127.0.0.1:5432: connection refused")
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"record not found", gorm.ErrRecordNotFound, ErrNotFound},
		{"wrapped record not found", fmt.Errorf("get booking: %w", gorm.ErrRecordNotFound), ErrNotFound},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, ErrDuplicate},
		{"postgres unique violation", &pgconn.PgError{Code: "23505"}, ErrDuplicate},
		{"wrapped unique violation", fmt.Errorf("create user: %w", &pgconn.PgError{Code: "23505"}), ErrDuplicate},
		{"other postgres error", &pgconn.PgError{Code: "23503"}, nil},
		{"connection error", dbDown, dbDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.err)
			if tt.want == nil && tt.err != nil {
				assert.False(t, errors.Is(got, ErrNotFound))
				assert.False(t, errors.Is(got, ErrDuplicate))
				assert.Equal(t, tt.err, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestBookingInsertError(t *testing.T) {
	assert.NoError(t, bookingInsertError(nil))
	assert.ErrorIs(t, bookingInsertError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_bookings_active_slot"}), ErrSlotTaken)
	assert.ErrorIs(t, bookingInsertError(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)), ErrSlotTaken)

	other := &pgconn.PgError{Code: "40001"}
	assert.Equal(t, error(other), bookingInsertError(other))
	assert.False(t, isUniqueViolation(errors.New("duplicate key value")))
}
