package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/virtual-devices-core/internal/fleet"
)

func TestGetConfigPathDefault(t *testing.T) {
	t.Setenv("VIRTDEV_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

func TestGetConfigPathEnvOverride(t *testing.T) {
	t.Setenv("VIRTDEV_CONFIG", "/custom/path/config.yaml")

	if path := getConfigPath(); path != "/custom/path/config.yaml" {
		t.Errorf("getConfigPath() = %q", path)
	}
}

func TestRunInvalidConfigPath(t *testing.T) {
	t.Setenv("VIRTDEV_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with a missing config file")
	}
}

func TestRunMissingFleetDocument(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
fleet:
  path: "` + filepath.Join(tmpDir, "absent.yaml") + `"
mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
    client_id: "vd-test"
logging:
  level: error
  format: text
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}
	t.Setenv("VIRTDEV_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail when the fleet document is missing")
	}
}

func TestRunInvalidFleetDocument(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	fleetPath := filepath.Join(tmpDir, "devices.yaml")

	// Duplicate instance ids: rejected wholesale at load.
	fleetContent := `
devices:
  - instance: 1
    type: battery
    name: A
    bindings: [{key: soc, state_topic: a/soc}]
  - instance: 1
    type: battery
    name: B
    bindings: [{key: soc, state_topic: b/soc}]
`
	if err := os.WriteFile(fleetPath, []byte(fleetContent), 0600); err != nil {
		t.Fatalf("writing fleet fixture: %v", err)
	}

	configContent := `
fleet:
  path: "` + fleetPath + `"
mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
    client_id: "vd-test"
logging:
  level: error
  format: text
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}
	t.Setenv("VIRTDEV_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if !errors.Is(err, fleet.ErrInvalidDocument) {
		t.Fatalf("run() error = %v, want ErrInvalidDocument", err)
	}
}
