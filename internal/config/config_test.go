package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("WORKER_MATCH_INTERVAL", "soon")

	_, err := load()
	if err == nil {
		t.Fatal("load() accepted a malformed duration")
	}
	if !strings.Contains(err.Error(), "WORKER_MATCH_INTERVAL") {
		t.Errorf("error %q does not name the offending variable", err)
	}
}

func TestLoadParsesDuration(t *testing.T) {
	t.Setenv("SERVER_READ_TIMEOUT", "15s")

	cfg, err := load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("ReadTimeout = %s, want 15s", cfg.Server.ReadTimeout)
	}
}

func TestLoadDefaultsUnsetDurations(t *testing.T) {
	t.Setenv("WORKER_LIQUIDITY_AGE", "")

	cfg, err := load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Worker.LiquidityAge != 20*time.Second {
		t.Errorf("LiquidityAge = %s, want default 20s", cfg.Worker.LiquidityAge)
	}
}
