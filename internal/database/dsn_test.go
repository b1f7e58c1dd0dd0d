package database

import (
	"strings"
	"testing"
)

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User: "tron",
		Name: "tronobserver",
	})
	if err != nil {
		t.Fatalf("build dsn: %v", err)
	}

	expected := "host=localhost port=5432 user=tron dbname=tronobserver TimeZone=UTC sslmode=disable"
	if dsn != expected {
		t.Fatalf("expected %q, got %q", expected, dsn)
	}
}

func TestBuildPostgresDSNWithOptions(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "user",
		Name:     "db",
		Host:     "db.example.com",
		Port:     6543,
		Password: "pass",
		Options: map[string]string{
			"sslmode":     "require",
			"search_path": "public",
		},
	})
	if err != nil {
		t.Fatalf("build dsn: %v", err)
	}

	if !containsAll(dsn,
		"host=db.example.com",
		"port=6543",
		"password=pass",
		"sslmode=require",
		"search_path=public",
	) {
		t.Fatalf("dsn missing expected components: %q", dsn)
	}
}

func TestBuildDSNOverrideWins(t *testing.T) {
	override := "postgres://user@host/db"
	if dsn, _ := buildPostgresDSN(Config{DSN: override}); dsn != override {
		t.Fatalf("expected override, got %q", dsn)
	}
	if dsn, _ := buildMySQLDSN(Config{DSN: override}); dsn != override {
		t.Fatalf("expected override, got %q", dsn)
	}
	if dsn, _ := buildSQLiteDSN(Config{DSN: override}); dsn != override {
		t.Fatalf("expected override, got %q", dsn)
	}
}

func TestBuildPostgresDSNRequiresUserAndName(t *testing.T) {
	if _, err := buildPostgresDSN(Config{}); err == nil {
		t.Fatalf("expected error for missing credentials")
	}
}

func TestBuildMySQLDSNDefaults(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User: "tron",
		Name: "tronobserver",
	})
	if err != nil {
		t.Fatalf("build dsn: %v", err)
	}

	expected := "tron@tcp(127.0.0.1:3306)/tronobserver?charset=utf8mb4&loc=UTC&parseTime=True"
	if dsn != expected {
		t.Fatalf("expected %q, got %q", expected, dsn)
	}
}

func TestBuildMySQLDSNWithOptions(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:     "user",
		Password: "secret",
		Name:     "db",
		Host:     "db.example.com",
		Port:     3307,
		Options:  map[string]string{"tls": "skip-verify"},
	})
	if err != nil {
		t.Fatalf("build dsn: %v", err)
	}

	if !containsAll(dsn, "user:secret@tcp(db.example.com:3307)/db?", "tls=skip-verify", "loc=UTC") {
		t.Fatalf("dsn missing expected components: %q", dsn)
	}
}

func TestBuildSQLiteDSNDefaultsToMemory(t *testing.T) {
	dsn, err := buildSQLiteDSN(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("build dsn: %v", err)
	}
	if !strings.Contains(dsn, "memory") {
		t.Fatalf("expected in-memory dsn, got %q", dsn)
	}
}

func containsAll(value string, parts ...string) bool {
	for _, part := range parts {
		if !strings.Contains(value, part) {
			return false
		}
	}
	return true
}
