package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Env struct {
	AppAddr string
	GinMode string

	DBHost        string
	DBPort        int
	DBUser        string
	DBPassword    string
	DBName        string
	DBAutoMigrate bool
	DBMaxConns    int
	SeedFloors    int
	SeedPerFloor  int

	// Bootstrap admin account, created at startup when both are set.
	AdminLogin    string
	AdminPassword string

	JWTSecret string
	JWTTTL    time.Duration

	LPRURL           string
	LPRTimeout       time.Duration
	LPRSamplesDir    string
	LPRRatePerMinute int

	PublicBaseURL      string
	CORSAllowedOrigins []string
}

// LoadEnv reads .env (when present) and then the process environment.
func LoadEnv() Env {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: failed to read .env: %v", err)
	}

	return Env{
		AppAddr: getString("APP_ADDR", ":3000"),
		GinMode: getString("GIN_MODE", ""),

		DBHost:        getString("DB_HOST", "127.0.0.1"),
		DBPort:        getInt("DB_PORT", 3306),
		DBUser:        getString("DB_USER", "root"),
		DBPassword:    getString("DB_PASSWORD", ""),
		DBName:        getString("DB_NAME", "parking_db"),
		DBAutoMigrate: getBool("DB_AUTO_MIGRATE", false),
		DBMaxConns:    getInt("DB_MAX_CONNS", 25),
		SeedFloors:    getInt("SEED_FLOORS", 5),
		SeedPerFloor:  getInt("SEED_SPOTS_PER_FLOOR", 10),

		AdminLogin:    getString("ADMIN_LOGIN", ""),
		AdminPassword: getString("ADMIN_PASSWORD", ""),

		JWTSecret: getString("JWT_SECRET", ""),
		JWTTTL:    time.Duration(getInt("JWT_TTL_HOURS", 24)) * time.Hour,

		LPRURL:           strings.TrimRight(getString("LPR_URL", "http://localhost:8000"), "/"),
		LPRTimeout:       time.Duration(getInt("LPR_TIMEOUT_SECONDS", 15)) * time.Second,
		LPRSamplesDir:    getString("LPR_SAMPLES_DIR", ""),
		LPRRatePerMinute: getInt("LPR_RATE_PER_MINUTE", 30),

		PublicBaseURL:      strings.TrimRight(getString("PUBLIC_BASE_URL", "http://localhost:3000"), "/"),
		CORSAllowedOrigins: splitList(getString("CORS_ALLOWED_ORIGINS", "")),
	}
}

// minJWTSecretLen is the HS256 key length below which tokens are easy to forge.
const minJWTSecretLen = 16

// Validate reports settings the server must not start without.
func (e Env) Validate() error {
	switch {
	case e.JWTSecret == "":
		return errors.New("JWT_SECRET is required")
	case len(e.JWTSecret) < minJWTSecretLen:
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	return nil
}

func getString(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("warning: %s=%q is not a number, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func splitList(raw string) []string {
	out := []string{}
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
