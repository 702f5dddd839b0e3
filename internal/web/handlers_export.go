package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/lca-intake/internal/export"
	"github.com/JonMunkholm/lca-intake/internal/intake"
	"github.com/JonMunkholm/lca-intake/internal/logging"
)

// handlePayload returns the export document as JSON.
func (s *Server) handlePayload(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := export.WriteJSON(w, sessionFrom(r).Payload()); err != nil {
		logging.FromContext(r.Context()).Error("payload encode error", "error", err)
	}
}

// handleExport renders the session in the requested format and serves it
// as a download. The file is rendered fully before any byte is sent so a
// failed render still gets a JSON error.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("format")
	if raw == "" {
		raw = string(export.FormatJSON)
	}
	format, err := export.ParseFormat(raw)
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w %q", errUnknownFormat, raw))
		return
	}

	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	defer s.limiter.Release()

	payload, qc := sessionFrom(r).PayloadWithQC()
	start := time.Now()
	var buf bytes.Buffer
	if err := s.exporter.Export(r.Context(), &buf, format, payload, qc); err != nil {
		s.fail(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("export written",
		"format", format,
		"bytes", buf.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, format.FileName()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("export write interrupted", "format", format, "error", err)
	}
}

type capabilityResponse struct {
	export.CapabilityStatus
	Exports export.LimiterStatus `json:"exports"`
	Message string               `json:"message,omitempty"`
}

func (s *Server) capabilitySnapshot() capabilityResponse {
	st := s.exporter.Capability().Status()
	resp := capabilityResponse{CapabilityStatus: st, Exports: s.limiter.Status()}
	switch st.State {
	case export.StateLoading:
		resp.Message = intake.MapError(export.ErrCapabilityLoading).Message
	case export.StateFailed:
		resp.Message = intake.MapError(export.ErrCapabilityFailed).Message
	}
	return resp
}

// handleCapabilityStatus reports the spreadsheet capability state without
// triggering a load.
func (s *Server) handleCapabilityStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.capabilitySnapshot())
}

// handleCapabilityStart begins loading the spreadsheet capability. A failed
// capability is reset first so the load is retried.
func (s *Server) handleCapabilityStart(w http.ResponseWriter, r *http.Request) {
	c := s.exporter.Capability()
	if c.Reset() {
		logging.FromContext(r.Context()).Info("spreadsheet capability reset for retry")
	}
	c.Start()
	writeJSON(w, http.StatusAccepted, s.capabilitySnapshot())
}
