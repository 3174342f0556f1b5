package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	config "github.com/anjiri1684/driving_school/configs"
	"github.com/anjiri1684/driving_school/models"
	"github.com/anjiri1684/driving_school/repository"
	"github.com/anjiri1684/driving_school/utils"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func ConnectDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   logger.Default.LogMode(logger.Warn),
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info().Msg("✅ Database connected successfully")
	return db, nil
}

// OpenStore builds the store selected by STORE_DRIVER. The returned close
// func releases the connection pool.
func OpenStore(cfg config.Config) (repository.Store, func() error, error) {
	if cfg.StoreDriver == "memory" {
		log.Warn().Msg("Using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), func() error { return nil }, nil
	}

	db, err := ConnectDB(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return repository.NewGormStore(db), sqlDB.Close, nil
}

type migrator interface {
	Migrate() error
}

func Migrate(store repository.Store) error {
	m, ok := store.(migrator)
	if !ok {
		return nil
	}
	if err := m.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Info().Msg("✅ Database migration successful")
	return nil
}

func SeedAdmin(ctx context.Context, users repository.UserStore, ids utils.IDAllocator, email, password, fullName string) error {
	if email == "" || password == "" {
		log.Warn().Msg("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	_, err := users.GetUserByEmail(ctx, email)
	if err == nil {
		log.Info().Msg("Admin user already exists.")
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to check for admin user: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := models.User{
		ID:       ids.NewID(),
		FullName: fullName,
		Email:    email,
		Password: string(hashedPassword),
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := users.CreateUser(ctx, &admin); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	log.Info().Msg("✅ Admin user seeded successfully")
	return nil
}

type demoInstructor struct {
	name         string
	email        string
	rate         int64
	transmission models.Transmission
	areas        []string
}

var demoInstructors = []demoInstructor{
	{"Priya Raman", "priya@drivebook.test", 80, models.TransmissionBoth, []string{"Bondi", "Bondi Junction", "Randwick"}},
	{"Tom Walsh", "tom@drivebook.test", 75, models.TransmissionManual, []string{"Parramatta", "Westmead"}},
	{"Mei Chen", "mei@drivebook.test", 90, models.TransmissionAutomatic, []string{"Chatswood", "North Sydney"}},
}

// SeedDemoInstructors adds a few verified instructors for local development.
// Existing emails are skipped.
func SeedDemoInstructors(ctx context.Context, store repository.Store, ids utils.IDAllocator, password, currency string) (int, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("failed to hash demo password: %w", err)
	}

	created := 0
	for _, d := range demoInstructors {
		if _, err := store.GetUserByEmail(ctx, d.email); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return created, err
		}

		id := ids.NewID()
		user := models.User{ID: id, FullName: d.name, Email: d.email, Password: string(hash), Role: models.RoleInstructor, IsActive: true}
		if err := store.CreateUser(ctx, &user); err != nil {
			return created, fmt.Errorf("seed user %s: %w", d.email, err)
		}
		in := models.Instructor{
			ID:           id,
			FullName:     d.name,
			Email:        d.email,
			PricePerHour: d.rate,
			Currency:     currency,
			Transmission: d.transmission,
			ServiceAreas: d.areas,
			Verified:     true,
			Available:    true,
		}
		if err := store.CreateInstructor(ctx, &in); err != nil {
			return created, fmt.Errorf("seed instructor %s: %w", d.email, err)
		}
		created++
	}
	if created > 0 {
		log.Info().Int("count", created).Msg("✅ Demo instructors seeded")
	}
	return created, nil
}
