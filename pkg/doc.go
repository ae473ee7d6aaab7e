// Package pkg provides shared utilities for the usbdisk driver.
//
// This package contains common functionality used across the driver,
// the HAL layer, and the simulated device, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error types for USB transport conditions
//   - Component identifiers for log filtering
//
// The package has zero external dependencies, relying only on the Go
// standard library.
//
// # Logging
//
// The logging subsystem wraps [log/slog] with driver-specific context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentDisk, "device ready", "blocks", count)
//
// # Errors
//
// Transport-level conditions are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrStall) {
//	    // Handle endpoint stall
//	}
package pkg
