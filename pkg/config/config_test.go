package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.ListenAddr != "127.0.0.1:7420" {
		t.Fatalf("unexpected listen addr: %s", cfg.Server.ListenAddr)
	}
	if cfg.Backend.Kind != "memory" {
		t.Fatalf("unexpected backend kind: %s", cfg.Backend.Kind)
	}
}

func TestLoadReadsConfigFileAndOverlay(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "config"), 0o700); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	base := []byte("backend:\n  kind: ipfs\n  cache_entries: 10\n")
	if err := os.WriteFile(filepath.Join(root, "config", "default.yaml"), base, 0o600); err != nil {
		t.Fatalf("write default.yaml failed: %v", err)
	}
	overlay := []byte("backend:\n  cache_entries: 99\n")
	if err := os.WriteFile(filepath.Join(root, "config", "production.yaml"), overlay, 0o600); err != nil {
		t.Fatalf("write production.yaml failed: %v", err)
	}

	if err := os.Chdir(root); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	cfg, err := Load("production")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.Kind != "ipfs" {
		t.Fatalf("expected kind from base file, got %s", cfg.Backend.Kind)
	}
	if cfg.Backend.CacheEntries != 99 {
		t.Fatalf("expected cache_entries overridden to 99, got %d", cfg.Backend.CacheEntries)
	}
}

func TestLoadFromEnvUsesSyncEnv(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "config"), 0o700); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	overlay := []byte("default_branch: staging\n")
	if err := os.WriteFile(filepath.Join(root, "config", "staging.yaml"), overlay, 0o600); err != nil {
		t.Fatalf("write staging.yaml failed: %v", err)
	}

	if err := os.Chdir(root); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	os.Setenv("SYNC_ENV", "staging")
	defer os.Unsetenv("SYNC_ENV")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}
	if cfg.DefaultBranch != "staging" {
		t.Fatalf("expected default_branch staging, got %s", cfg.DefaultBranch)
	}
}
