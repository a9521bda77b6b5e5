package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFrom_MissingFileGivesDefaults(t *testing.T) {
	settings, err := LoadFrom(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if settings.Version != 1 {
		t.Errorf("Version = %d, want 1", settings.Version)
	}
	if settings.Preferences == nil || settings.Preferences.OutputFormat != "detailed" {
		t.Errorf("Preferences = %+v", settings.Preferences)
	}
	if settings.UsernameOrEmpty() != "" {
		t.Errorf("UsernameOrEmpty() = %q, want empty", settings.UsernameOrEmpty())
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	settings := NewSettings()
	settings.Account = &Account{Username: "testuser", LastUsed: time.Now().UTC().Truncate(time.Second)}
	settings.Portal = &Portal{AuthHost: "portal.example.com", OEM: "73"}
	settings.EnsureDevice("70009999").Nickname = "Living Room Hub"

	if err := SaveTo(path, settings); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if loaded.UsernameOrEmpty() != "testuser" {
		t.Errorf("Username = %q", loaded.UsernameOrEmpty())
	}
	if loaded.Portal == nil || loaded.Portal.AuthHost != "portal.example.com" {
		t.Errorf("Portal = %+v", loaded.Portal)
	}
	if meta := loaded.Devices["70009999"]; meta == nil || meta.Nickname != "Living Room Hub" {
		t.Errorf("Devices = %+v", loaded.Devices)
	}
}

func TestEnsureDevice(t *testing.T) {
	settings := &Settings{}

	first := settings.EnsureDevice("dev-1")
	first.Nickname = "Blind"

	second := settings.EnsureDevice("dev-1")
	if second != first {
		t.Error("EnsureDevice should return the existing entry")
	}
	if second.Nickname != "Blind" {
		t.Errorf("Nickname = %q", second.Nickname)
	}
}
