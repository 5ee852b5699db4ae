package api

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/theatre-core/internal/audit"
	"github.com/nerrad567/theatre-core/internal/device"
)

const (
	healthCheckTimeout   = 2 * time.Second
	displayReportTimeout = 2 * time.Second
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	Controller    string            `json:"controller"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks,omitempty"`
}

// handleHealth reports "ok" while the controller runs and every check
// passes, and "degraded" with 503 otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:        "ok",
		Version:       s.version,
		Controller:    s.controller.Status().State,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	if resp.Controller != "running" {
		resp.Status = "degraded"
	}

	if len(s.checks) > 0 {
		resp.Checks = make(map[string]string, len(s.checks))
		names := make([]string, 0, len(s.checks))
		for name := range s.checks {
			names = append(names, name)
		}
		slices.Sort(names)

		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := s.checks[name].HealthCheck(ctx)
			cancel()
			if err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleStatus returns the controller snapshot plus a live display reading.
// A display that cannot be read is reported in display_error; the rest of
// the status is still returned.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.controller.Status()

	ctx, cancel := context.WithTimeout(r.Context(), displayReportTimeout)
	defer cancel()
	report, err := s.controller.DisplayReport(ctx)
	if err != nil {
		status.DisplayError = err.Error()
	} else {
		status.Display = &report
	}
	writeJSON(w, http.StatusOK, status)
}

// handleListExecutions pages through the rule journal. Query parameters:
// rule (exact name, or scope ending in "/"), failed=true, since (RFC 3339),
// limit and offset.
func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	if s.executions == nil {
		fail(w, http.StatusNotFound, "execution journal is disabled")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{Rule: q.Get("rule")}

	if v := q.Get("failed"); v != "" {
		failed, err := strconv.ParseBool(v)
		if err != nil {
			fail(w, http.StatusBadRequest, "failed must be a boolean")
			return
		}
		filter.FailedOnly = failed
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			fail(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = since
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			fail(w, http.StatusBadRequest, name+" must be a non-negative integer")
			return
		}
		*dst = n
	}

	result, err := s.executions.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing rule executions failed", "error", err)
		fail(w, http.StatusInternalServerError, "failed to list executions")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// LightOutputResponse is the body of a successful light output change.
type LightOutputResponse struct {
	Level device.LightOutput `json:"level"`
}

func (s *Server) handleSetLightOutput(w http.ResponseWriter, r *http.Request) {
	level, err := device.ParseLightOutput(chi.URLParam(r, "mode"))
	if err != nil {
		fail(w, http.StatusBadRequest, "mode must be one of low, mid, high")
		return
	}

	if err := s.controller.SetLightOutput(r.Context(), level); err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Warn("setting light output failed", "level", string(level), "error", err)
		}
		fail(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, LightOutputResponse{Level: level})
}
