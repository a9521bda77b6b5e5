// Package logging provides structured logging for the balirelay client.
//
// This package wraps zap logger with convenience functions for the logging
// patterns used throughout the client: credential chain calls, relay session
// lifecycle events, and protocol message traces.
//
// # Log Levels
//
//   - Debug: protocol traces (MMS API calls, relay messages, dropped responses)
//   - Info: normal operations (handshakes, reconnects, state changes)
//   - Warn: non-fatal issues (unmatched correlation ids, unknown broadcasts)
//   - Error: failures (handshake errors, observer panics)
//
// # Configuration
//
// Logging is silent by default so library consumers and CLI output stay
// clean. Enable it through the BALIRELAY_LOG_LEVEL environment variable or by
// calling Initialize explicitly:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Structured Logging
//
// All log functions use structured fields:
//
//	logging.Info("Relay session event",
//	    zap.String("relay", "wss://nma-server7-ui-cloud.ezlo.com"),
//	    zap.String("event", "handshake_complete"),
//	)
package logging
