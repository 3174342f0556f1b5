package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port        string        `envconfig:"PORT" default:"8080"`
	Env         string        `envconfig:"APP_ENV" default:"development"`
	DatabaseURL string        `envconfig:"DATABASE_URL"`
	StoreDriver string        `envconfig:"STORE_DRIVER" default:"postgres"`
	JWTSecret   string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL      time.Duration `envconfig:"JWT_TTL" default:"72h"`

	SchoolTimezone string        `envconfig:"SCHOOL_TIMEZONE" default:"Australia/Sydney"`
	Currency       string        `envconfig:"CURRENCY" default:"AUD"`
	PendingTTL     time.Duration `envconfig:"PENDING_TTL" default:"15m"`
	FlowSessionTTL time.Duration `envconfig:"FLOW_SESSION_TTL" default:"30m"`

	PaymentProvider   string        `envconfig:"PAYMENT_PROVIDER" default:"simulated"`
	PaymentTimeout    time.Duration `envconfig:"PAYMENT_TIMEOUT" default:"5s"`
	PaymentMinLatency time.Duration `envconfig:"PAYMENT_MIN_LATENCY" default:"2s"`
	PaymentMaxLatency time.Duration `envconfig:"PAYMENT_MAX_LATENCY" default:"4s"`
	OmisePublicKey    string        `envconfig:"OMISE_PUBLIC_KEY"`
	OmiseSecretKey    string        `envconfig:"OMISE_SECRET_KEY"`

	RedisURL       string `envconfig:"REDIS_URL"`
	RabbitURL      string `envconfig:"RABBIT_URL"`
	NotifyExchange string `envconfig:"NOTIFY_EXCHANGE" default:"drivebook.notifications"`

	BrevoAPIKey     string `envconfig:"BREVO_API_KEY"`
	EmailSender     string `envconfig:"EMAIL_SENDER"`
	EmailSenderName string `envconfig:"EMAIL_SENDER_NAME"`

	LearningPathURL string `envconfig:"LEARNING_PATH_URL"`
	CloudinaryURL   string `envconfig:"CLOUDINARY_URL"`
	OTLPEndpoint    string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`
	AdminFullName string `envconfig:"ADMIN_FULL_NAME" default:"School Admin"`
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Warn().Msg("Warning: .env file not found, reading from system environment variables")
	}
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return c, err
	}
	return c, c.validate()
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	switch c.StoreDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.PaymentProvider {
	case "simulated":
		if c.PaymentMinLatency > c.PaymentMaxLatency {
			return fmt.Errorf("PAYMENT_MIN_LATENCY exceeds PAYMENT_MAX_LATENCY")
		}
	case "omise":
		if c.OmisePublicKey == "" || c.OmiseSecretKey == "" {
			return fmt.Errorf("OMISE_PUBLIC_KEY and OMISE_SECRET_KEY are required when PAYMENT_PROVIDER=omise")
		}
	default:
		return fmt.Errorf("unknown PAYMENT_PROVIDER %q", c.PaymentProvider)
	}
	if c.PendingTTL <= 0 || c.PaymentTimeout <= 0 {
		return fmt.Errorf("PENDING_TTL and PAYMENT_TIMEOUT must be positive")
	}
	// a pending booking must outlive its charge or the sweep can cancel a paid slot
	if c.PendingTTL <= c.PaymentTimeout {
		return fmt.Errorf("PENDING_TTL (%s) must be longer than PAYMENT_TIMEOUT (%s)", c.PendingTTL, c.PaymentTimeout)
	}
	return nil
}

func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.SchoolTimezone)
	if err != nil {
		return nil, fmt.Errorf("load SCHOOL_TIMEZONE %q: %w", c.SchoolTimezone, err)
	}
	return loc, nil
}

func (c Config) IsProduction() bool { return c.Env == "production" }
