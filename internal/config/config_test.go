package config

import (
	"testing"
)

func TestLoadRequiresDatabase(t *testing.T) {
	t.Setenv("DB_DATABASE", "")
	if _, err := Load(); err == nil {
		t.Error("Expected error when DB_DATABASE is unset")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DATABASE", "entitydb")
	t.Setenv("DB_USER", "entitydb")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Port != "3000" {
		t.Errorf("Expected default port 3000, got %s", cfg.Port)
	}
	if cfg.DBType != "mysql" {
		t.Errorf("Expected default db type mysql, got %s", cfg.DBType)
	}
	if cfg.UpdateRetries != 3 {
		t.Errorf("Expected 3 update retries, got %d", cfg.UpdateRetries)
	}
	if len(cfg.TenantEntityTypes) != 2 {
		t.Errorf("Expected default tenant types, got %v", cfg.TenantEntityTypes)
	}
}

func TestLoadSqliteSkipsUserRequirement(t *testing.T) {
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("DB_DATABASE", "file.db")
	t.Setenv("DB_USER", "")

	if _, err := Load(); err != nil {
		t.Errorf("Expected sqlite config without DB_USER to load, got %v", err)
	}
}

func TestGetEnvAsListTrimsAndSkipsEmpty(t *testing.T) {
	t.Setenv("TENANT_ENTITY_TYPES", " organization , , workspace ")

	values := getEnvAsList("TENANT_ENTITY_TYPES", nil)
	if len(values) != 2 || values[0] != "organization" || values[1] != "workspace" {
		t.Errorf("Expected trimmed two-element list, got %v", values)
	}
}
