// Package config persists user settings for the balirelay CLI: the portal
// account, optional MMS endpoint overrides, and per-device metadata. The
// config file lives in the platform's conventional config directory and is
// written with user-only permissions. Passwords are never stored.
package config
