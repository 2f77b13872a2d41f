package config

import (
	"os"
	"testing"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoad_AppliesDefaultsAndRequiresJWTSecret(t *testing.T) {
	clearEnv(t, "JWT_SECRET", "NODE_ENV", "PORT", "DATABASE_HOST", "DATABASE_NAME", "DATABASE_USER")

	if _, err := Load(""); err == nil {
		t.Fatal("expected Load to fail without JWT_SECRET")
	}

	os.Setenv("JWT_SECRET", "a-sufficiently-long-secret-value")
	t.Cleanup(func() { os.Unsetenv("JWT_SECRET") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want %q", cfg.Env, "development")
	}
	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.IsProduction() {
		t.Error("default environment must not be production")
	}
}

func TestLoad_EnvOverridesWinOverDefaults(t *testing.T) {
	clearEnv(t, "JWT_SECRET", "NODE_ENV", "PORT")

	os.Setenv("JWT_SECRET", "a-sufficiently-long-secret-value")
	os.Setenv("NODE_ENV", "production")
	os.Setenv("PORT", "8443")
	t.Cleanup(func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("NODE_ENV")
		os.Unsetenv("PORT")
	})

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("expected NODE_ENV=production to mark the config production")
	}
	if cfg.Port != 8443 {
		t.Errorf("Port = %d, want 8443", cfg.Port)
	}
}

func TestLoad_RejectsReplayGuardWithoutRedis(t *testing.T) {
	clearEnv(t, "JWT_SECRET", "EXEC_KEY_REPLAY_GUARD", "REDIS_ADDR")

	os.Setenv("JWT_SECRET", "a-sufficiently-long-secret-value")
	os.Setenv("EXEC_KEY_REPLAY_GUARD", "true")
	t.Cleanup(func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("EXEC_KEY_REPLAY_GUARD")
	})

	if _, err := Load(""); err == nil {
		t.Fatal("expected Load to reject EXEC_KEY_REPLAY_GUARD without REDIS_ADDR")
	}
}

func TestLoad_RejectsInvalidEnvironment(t *testing.T) {
	clearEnv(t, "JWT_SECRET", "NODE_ENV")

	os.Setenv("JWT_SECRET", "a-sufficiently-long-secret-value")
	os.Setenv("NODE_ENV", "staging")
	t.Cleanup(func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("NODE_ENV")
	})

	if _, err := Load(""); err == nil {
		t.Fatal("expected Load to reject an environment other than production/development")
	}
}
