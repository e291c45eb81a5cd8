package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable; required variables are enforced by must().
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	OrderExpiry        time.Duration // how long a pending order may wait for payment
	OrderSweepInterval time.Duration // how often overdue orders are expired

	MidtransServerKey  string // empty disables the Snap gateway
	MidtransProduction bool

	RabbitURL      string // empty disables broker publishing
	JaegerEndpoint string // empty disables tracing export

	Ledger LedgerConfig
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:            envStr("APP_ENV", "dev"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     envInt("BCRYPT_COST", 10),

		OrderExpiry:        envDur("ORDER_EXPIRY", 24*time.Hour),
		OrderSweepInterval: envDur("ORDER_SWEEP_INTERVAL", time.Minute),

		MidtransServerKey:  os.Getenv("MIDTRANS_SERVER_KEY"),
		MidtransProduction: envBool("MIDTRANS_PRODUCTION", false),

		RabbitURL:      rabbitURL(),
		JaegerEndpoint: os.Getenv("JAEGER_ENDPOINT"),

		Ledger: LoadLedgerConfig(),
	}
}

func rabbitURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
