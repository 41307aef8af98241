// Package logging provides structured logging for the virtual devices
// service.
//
// It wraps the standard library's log/slog package with service defaults:
// JSON or text output, level filtering from configuration, and default
// fields (service name, version) on every record.
//
// Components receive a child logger via With:
//
//	engineLog := log.With("component", "engine")
//	engineLog.Warn("decode failed", "topic", topic, "payload", payload)
//
// Packages that need to log accept a small Logger interface of their own
// (Warn/Error and friends) rather than this concrete type, so tests can
// substitute fakes and the dependency direction stays inward.
package logging
