package config

import (
	"os"
	"testing"
	"time"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("setenv %s failed: %v", key, err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		}
	})
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	setEnv(t, "MYSQL_DSN", "root:root@tcp(localhost:3306)/entitlements?parseTime=true")
	setEnv(t, "SIGNING_REQUEST_SECRET", "request-secret")
	setEnv(t, "SIGNING_CALLBACK_SECRET", "callback-secret")
}

func TestLoadRequiresMySQLDSN(t *testing.T) {
	unsetEnv(t, "MYSQL_DSN")
	setEnv(t, "SIGNING_REQUEST_SECRET", "request-secret")
	setEnv(t, "SIGNING_CALLBACK_SECRET", "callback-secret")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing MYSQL_DSN")
	}
}

func TestLoadRequiresSigningSecrets(t *testing.T) {
	setEnv(t, "MYSQL_DSN", "root:root@tcp(localhost:3306)/entitlements?parseTime=true")
	setEnv(t, "SIGNING_CALLBACK_SECRET", "callback-secret")
	unsetEnv(t, "SIGNING_REQUEST_SECRET")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing SIGNING_REQUEST_SECRET")
	}

	setEnv(t, "SIGNING_REQUEST_SECRET", "request-secret")
	unsetEnv(t, "SIGNING_CALLBACK_SECRET")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing SIGNING_CALLBACK_SECRET")
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	unsetEnv(t, "ORDER_PENDING_TTL_MINUTES")
	unsetEnv(t, "POINTS_COINS_PER_MINOR_UNIT")
	unsetEnv(t, "JOBS_ORDER_EXPIRY_SPEC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.HTTP.Port != "8080" {
		t.Fatalf("unexpected default port: %s", cfg.HTTP.Port)
	}
	if cfg.Orders.PendingTTL != 30*time.Minute {
		t.Fatalf("unexpected pending ttl: %v", cfg.Orders.PendingTTL)
	}
	if cfg.Points.CoinsPerMinorUnit != 1 {
		t.Fatalf("unexpected coin rate: %d", cfg.Points.CoinsPerMinorUnit)
	}
	if cfg.Jobs.OrderExpirySweepSpec != "@every 1m" {
		t.Fatalf("unexpected sweep spec: %s", cfg.Jobs.OrderExpirySweepSpec)
	}
	if cfg.Subscriptions.NotifyLead != 3*24*time.Hour {
		t.Fatalf("unexpected notify lead: %v", cfg.Subscriptions.NotifyLead)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	setEnv(t, "APP_SERVICE_NAME", "entitlements-test")
	setEnv(t, "HTTP_PORT", "8181")
	setEnv(t, "MYSQL_MAX_OPEN_CONNS", "20")
	setEnv(t, "MYSQL_MAX_IDLE_CONNS", "8")
	setEnv(t, "MYSQL_CONN_MAX_LIFETIME_MINUTES", "40")
	setEnv(t, "ORDER_PENDING_TTL_MINUTES", "15")
	setEnv(t, "POINTS_COINS_PER_MINOR_UNIT", "10")
	setEnv(t, "SUBSCRIPTION_NOTIFY_LEAD_MINUTES", "1440")
	setEnv(t, "JOBS_ORDER_EXPIRY_SPEC", "@every 30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.App.ServiceName != "entitlements-test" {
		t.Fatalf("unexpected app service name: %s", cfg.App.ServiceName)
	}
	if cfg.HTTP.Port != "8181" {
		t.Fatalf("unexpected port: %s", cfg.HTTP.Port)
	}
	if cfg.MySQL.MaxOpenConns != 20 || cfg.MySQL.MaxIdleConns != 8 {
		t.Fatalf("unexpected mysql pool config: %+v", cfg.MySQL)
	}
	if cfg.MySQL.ConnMaxLifetime != 40*time.Minute {
		t.Fatalf("unexpected mysql lifetime: %v", cfg.MySQL.ConnMaxLifetime)
	}
	if cfg.Orders.PendingTTL != 15*time.Minute {
		t.Fatalf("unexpected pending ttl: %v", cfg.Orders.PendingTTL)
	}
	if cfg.Points.CoinsPerMinorUnit != 10 {
		t.Fatalf("unexpected coin rate: %d", cfg.Points.CoinsPerMinorUnit)
	}
	if cfg.Subscriptions.NotifyLead != 24*time.Hour {
		t.Fatalf("unexpected notify lead: %v", cfg.Subscriptions.NotifyLead)
	}
	if cfg.Jobs.OrderExpirySweepSpec != "@every 30s" {
		t.Fatalf("unexpected sweep spec: %s", cfg.Jobs.OrderExpirySweepSpec)
	}
}
