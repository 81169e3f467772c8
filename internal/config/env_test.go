package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadEnvDefaults(t *testing.T) {
	for _, k := range []string{"APP_ADDR", "DB_PORT", "DB_NAME", "JWT_TTL_HOURS", "LPR_URL", "CORS_ALLOWED_ORIGINS", "DB_AUTO_MIGRATE", "JWT_SECRET"} {
		t.Setenv(k, "")
	}

	env := LoadEnv()
	if env.AppAddr != ":3000" {
		t.Fatalf("AppAddr = %q, want :3000", env.AppAddr)
	}
	if env.DBPort != 3306 || env.DBName != "parking_db" {
		t.Fatalf("unexpected db defaults: %+v", env)
	}
	if env.JWTTTL != 24*time.Hour {
		t.Fatalf("JWTTTL = %v, want 24h", env.JWTTTL)
	}
	if env.DBAutoMigrate {
		t.Fatalf("DBAutoMigrate should default to false")
	}
	if len(env.CORSAllowedOrigins) != 0 {
		t.Fatalf("expected no CORS origins, got %v", env.CORSAllowedOrigins)
	}
	if env.JWTSecret != "" {
		t.Fatalf("JWTSecret should have no default, got %q", env.JWTSecret)
	}
}

func TestValidateRequiresJWTSecret(t *testing.T) {
	cases := []struct {
		secret string
		ok     bool
	}{
		{"", false},
		{"short", false},
		{"0123456789abcdef", true},
	}
	for _, tc := range cases {
		err := Env{JWTSecret: tc.secret}.Validate()
		if (err == nil) != tc.ok {
			t.Fatalf("secret %q: got err %v, want ok=%v", tc.secret, err, tc.ok)
		}
	}

	t.Setenv("JWT_SECRET", "")
	if err := LoadEnv().Validate(); err == nil {
		t.Fatalf("expected an unset JWT_SECRET to be rejected")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DB_PORT", "3307")
	t.Setenv("LPR_URL", "http://alpr:8000/")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, ,http://127.0.0.1:5173")
	t.Setenv("DB_AUTO_MIGRATE", "true")
	t.Setenv("JWT_TTL_HOURS", "abc")

	env := LoadEnv()
	if env.DBPort != 3307 {
		t.Fatalf("DBPort = %d, want 3307", env.DBPort)
	}
	if env.LPRURL != "http://alpr:8000" {
		t.Fatalf("LPRURL = %q, trailing slash should be trimmed", env.LPRURL)
	}
	if len(env.CORSAllowedOrigins) != 2 {
		t.Fatalf("CORSAllowedOrigins = %v", env.CORSAllowedOrigins)
	}
	if !env.DBAutoMigrate {
		t.Fatalf("DBAutoMigrate should be true")
	}
	if env.JWTTTL != 24*time.Hour {
		t.Fatalf("invalid JWT_TTL_HOURS should fall back to 24h, got %v", env.JWTTTL)
	}
}

func TestDSN(t *testing.T) {
	dsn := DSN(Env{DBUser: "root", DBPassword: "pw", DBHost: "db", DBPort: 3307, DBName: "parking_db"})
	if !strings.HasPrefix(dsn, "root:pw@tcp(db:3307)/parking_db?") {
		t.Fatalf("unexpected dsn %q", dsn)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Fatalf("dsn should enable parseTime: %q", dsn)
	}
}
