// Package logging provides structured logging utilities for fleetkube.
//
// This package centralizes logging patterns to ensure consistent, structured
// logging throughout the client using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - Host/URL sanitization so API server IPs don't leak network topology
//   - Credential masking for bearer tokens and exec-plugin output
//   - Consistent attribute naming across the codebase
//   - A minimal Logger interface so callers can supply their own logger
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "resource.list")
//	logger.Info("listing resources",
//	    logging.Namespace("default"),
//	    logging.ResourceType("pods"))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("request failed",
//	    logging.Host(apiServer),
//	    logging.SanitizedErr(err))
//
// # Security Considerations
//
// This package is designed with security in mind:
//   - API server URLs have IP addresses redacted to prevent topology leakage
//   - Bearer tokens and exec-plugin credentials are never logged directly
package logging
