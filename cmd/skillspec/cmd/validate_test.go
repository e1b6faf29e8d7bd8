package cmd

import (
	"path/filepath"
	"testing"

	"github.com/AiCoda/skill-spec/internal/core/config"
)

func TestDatabaseURL(t *testing.T) {
	old := dbURL
	defer func() { dbURL = old }()

	cfg := config.DefaultConfig()
	cfg.DatabaseURL = "sqlite:///from/config.db"

	dbURL = ""
	if got := databaseURL(cfg); got != "sqlite:///from/config.db" {
		t.Errorf("databaseURL() = %q, want config value", got)
	}

	dbURL = "sqlite:///from/flag.db"
	if got := databaseURL(cfg); got != "sqlite:///from/flag.db" {
		t.Errorf("databaseURL() = %q, want flag value to win", got)
	}

	dbURL = ""
	cfg.DatabaseURL = ""
	if got := databaseURL(cfg); got != "" {
		t.Errorf("databaseURL() = %q, want empty", got)
	}
}

func TestBuildEngine_RegistryFromConfig(t *testing.T) {
	old := dbURL
	dbURL = ""
	defer func() { dbURL = old }()

	cfg := config.DefaultConfig()
	cfg.DatabaseURL = "sqlite://" + filepath.Join(t.TempDir(), "registry.db")

	engine, reg, closeDB, err := buildEngine(cfg)
	if err != nil {
		t.Fatalf("buildEngine() error = %v, want nil", err)
	}
	if engine == nil {
		t.Fatalf("engine = nil, want engine")
	}
	if reg == nil {
		t.Fatalf("registry = nil, want registry from configured database_url")
	}
	if closeDB == nil {
		t.Fatalf("closeDB = nil, want close function")
	}
	if err := closeDB(); err != nil {
		t.Errorf("closeDB() error = %v, want nil", err)
	}
}

func TestBuildEngine_NoDatabase(t *testing.T) {
	old := dbURL
	dbURL = ""
	defer func() { dbURL = old }()

	engine, reg, closeDB, err := buildEngine(config.DefaultConfig())
	if err != nil {
		t.Fatalf("buildEngine() error = %v, want nil", err)
	}
	if engine == nil {
		t.Fatalf("engine = nil, want engine")
	}
	if reg != nil {
		t.Errorf("registry = %v, want nil without a database URL", reg)
	}
	if closeDB != nil {
		t.Errorf("closeDB = %p, want nil without a database URL", closeDB)
	}
}
