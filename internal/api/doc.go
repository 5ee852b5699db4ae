// Package api serves the controller's HTTP status API.
//
// Routes:
//
//	GET  /api/v1/health                      liveness and dependency checks
//	GET  /api/v1/status                      controller status snapshot
//	GET  /api/v1/executions                  rule execution journal
//	POST /api/v1/display/light-output/{mode} set the display light output
//	GET  /metrics                            Prometheus exposition
//
// The server runs as a supervised service: Serve listens until its context
// is cancelled and then shuts down gracefully.
package api
