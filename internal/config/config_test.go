package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sample = `
server:
  port: 8080
database:
  driver: postgres
  host: db.internal
  port: 5432
  user: planscan
  password: filepass
  name: planscan
openai:
  model: gpt-4o-2024-08-06
auth:
  jwtSecret: filesecret
  tokenTTL: 12h
uploads:
  urlTTL: 10m
  downloadTTL: 2h
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %q", cfg.Database.Driver)
	}
	if cfg.Uploads.MaxSizeBytes != 20<<20 {
		t.Errorf("max size default = %d", cfg.Uploads.MaxSizeBytes)
	}
	if got := cfg.UploadTTL(); got != 10*time.Minute {
		t.Errorf("upload ttl = %v", got)
	}
	if got := cfg.DownloadTTL(); got != 2*time.Hour {
		t.Errorf("download ttl = %v", got)
	}
	if got := cfg.TokenTTL(); got != 12*time.Hour {
		t.Errorf("token ttl = %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "mysql" {
		t.Errorf("default driver = %q", cfg.Database.Driver)
	}
	if got := cfg.UploadTTL(); got != 15*time.Minute {
		t.Errorf("default upload ttl = %v", got)
	}
	if got := cfg.TokenTTL(); got != 24*time.Hour {
		t.Errorf("default token ttl = %v", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "envsecret")
	t.Setenv("DB_PASSWORD", "envpass")

	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.JWTSecret != "envsecret" {
		t.Errorf("jwt secret = %q, want env override", cfg.Auth.JWTSecret)
	}
	if cfg.Database.Password != "envpass" {
		t.Errorf("db password = %q, want env override", cfg.Database.Password)
	}
}

func TestDSNBuilders(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	wantPg := "host=db.internal port=5432 user=planscan password=filepass dbname=planscan sslmode=disable"
	if got := cfg.PostgresDSN(); got != wantPg {
		t.Errorf("postgres dsn = %q", got)
	}
	wantMy := "planscan:filepass@tcp(db.internal:5432)/planscan?parseTime=true&charset=utf8mb4&loc=UTC"
	if got := cfg.MySQLDSN(); got != wantMy {
		t.Errorf("mysql dsn = %q", got)
	}
}
