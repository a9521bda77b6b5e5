package config

import "time"

// Settings represents the entire user configuration file.
// This stores the portal account, optional endpoint overrides, and
// user-defined metadata for hub devices.
type Settings struct {
	Version     int                    `yaml:"version"`
	Account     *Account               `yaml:"account,omitempty"`
	Portal      *Portal                `yaml:"portal,omitempty"`
	Devices     map[string]*DeviceMeta `yaml:"devices,omitempty"` // Keyed by hub device id
	Preferences *Preferences           `yaml:"preferences,omitempty"`
}

// Account represents the portal login identity.
// Note: Passwords are NEVER stored - they are always prompted from the user
// or taken from the BALI_PASSWORD environment variable.
type Account struct {
	Username string    `yaml:"username"`
	LastUsed time.Time `yaml:"last_used,omitempty"`
	// Password is NEVER stored in the config file for security reasons
}

// Portal represents endpoint overrides for the MMS cloud API. Empty fields
// use the built-in Bali defaults.
type Portal struct {
	AuthHost string `yaml:"auth_host,omitempty"`
	OEM      string `yaml:"oem,omitempty"`
}

// DeviceMeta represents user-defined metadata for a single hub device.
// This is purely client-side information - the hub itself doesn't store it.
type DeviceMeta struct {
	Nickname string    `yaml:"nickname,omitempty"` // User-friendly name
	LastSeen time.Time `yaml:"last_seen,omitempty"`
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	OutputFormat   string `yaml:"output_format,omitempty"`  // "detailed" or "json"
	RequestTimeout int    `yaml:"request_timeout,omitempty"` // Seconds per hub request
}

// NewSettings creates Settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Version: 1,
		Devices: make(map[string]*DeviceMeta),
		Preferences: &Preferences{
			OutputFormat:   "detailed",
			RequestTimeout: 30,
		},
	}
}

// EnsureDevice ensures a device entry exists in the settings.
// Returns the entry (existing or newly created).
func (s *Settings) EnsureDevice(deviceID string) *DeviceMeta {
	if s.Devices == nil {
		s.Devices = make(map[string]*DeviceMeta)
	}
	if meta, ok := s.Devices[deviceID]; ok {
		return meta
	}
	meta := &DeviceMeta{}
	s.Devices[deviceID] = meta
	return meta
}

// UsernameOrEmpty returns the stored account username, or empty when no
// account has been configured.
func (s *Settings) UsernameOrEmpty() string {
	if s.Account == nil {
		return ""
	}
	return s.Account.Username
}
