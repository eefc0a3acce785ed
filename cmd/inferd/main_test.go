package main

import (
	"os"
	"path/filepath"
	"testing"

	"inferd/internal/config"
)

func TestResolveAddr(t *testing.T) {
	cases := []struct {
		name     string
		flagAddr string
		cfgAddr  string
		want     string
	}{
		{"flag wins over config", ":7000", ":9090", ":7000"},
		{"config wins when flag unset", "", ":9090", ":9090"},
		{"default when both unset", "", "", ":8080"},
		{"flag wins over default", ":7000", "", ":7000"},
	}
	for _, tc := range cases {
		if got := resolveAddr(tc.flagAddr, tc.cfgAddr); got != tc.want {
			t.Errorf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestConfigFileAddrSurvivesWithoutFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inferd.yaml")
	if err := os.WriteFile(path, []byte("addr: \":9090\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := resolveAddr("", cfg.Addr); got != ":9090" {
		t.Fatalf("config addr must survive an unset flag, got %q", got)
	}
}

func TestEnvAddrSurvivesWithoutFlag(t *testing.T) {
	t.Setenv("INFERD_ADDR", ":6000")
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := resolveAddr("", cfg.Addr); got != ":6000" {
		t.Fatalf("env addr must survive an unset flag, got %q", got)
	}
}
