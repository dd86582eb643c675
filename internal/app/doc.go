// Package app wires the bike report service together and manages its
// lifecycle.
//
// NewApplication builds every component from a config.Config: the slog
// logger, OpenTelemetry providers and report metrics, the data source, the
// report and health services, the websocket hub and the chi router. Load
// reads the first snapshot; Start additionally serves HTTP in the background
// and Run blocks until SIGINT or SIGTERM before shutting down gracefully.
//
// # Middleware
//
// API routes pass through, in order:
//
//	RequestID, RealIP, OTel, StructuredLogger, Recoverer,
//	SecurityHeaders, CORS, RateLimiter, Timeout
//
// The /ws and /metrics endpoints only get RequestID and RealIP so that
// long-lived connections and scrapes are neither timed out nor rate limited.
//
// # Usage
//
//	application, err := app.NewApplication(nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
package app
