package web

import (
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/lca-intake/internal/intake"
	"github.com/JonMunkholm/lca-intake/internal/logging"
	"github.com/JonMunkholm/lca-intake/internal/metrics"
)

func (s *Server) handleAddRow(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	id, err := sess.AddRow(sectionFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mutated(sess, id))
}

// handleUpdateRow applies a partial row update. Omitted fields keep their
// value; distances may only name enabled modes.
func (s *Server) handleUpdateRow(w http.ResponseWriter, r *http.Request) {
	var in intake.RowInput
	if err := s.decodeJSON(w, r, &in, false); err != nil {
		s.fail(w, r, err)
		return
	}
	sess := sessionFrom(r)
	id := chi.URLParam(r, "rowID")
	if err := sess.UpdateRow(sectionFrom(r), id, in); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutated(sess, id))
}

// handleRemoveRow deletes a row. Removing an unknown row is not an error.
func (s *Server) handleRemoveRow(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	id := chi.URLParam(r, "rowID")
	removed, err := sess.RemoveRow(sectionFrom(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := mutated(sess, id)
	resp.Removed = &removed
	writeJSON(w, http.StatusOK, resp)
}

type importResponse struct {
	intake.ImportResult
	mutationResponse
}

// handleImportRows appends rows from a CSV body or a multipart "file" field.
func (s *Server) handleImportRows(w http.ResponseWriter, r *http.Request) {
	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	defer s.limiter.Release()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodySize)

	var src io.Reader = r.Body
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		file, _, err := r.FormFile("file")
		if err != nil {
			if isTooLarge(err) {
				s.fail(w, r, err)
				return
			}
			s.fail(w, r, errMissingCSVFile)
			return
		}
		defer file.Close()
		src = file
	}

	sess := sessionFrom(r)
	kind := sectionFrom(r)
	res, err := sess.ImportRows(kind, src)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	metrics.AddImportedRows(string(kind), res.Added)
	logging.FromContext(r.Context()).Info("rows imported",
		"section", kind,
		"added", res.Added,
		"skipped", res.Skipped,
		"enabled_modes", res.EnabledModes,
	)
	writeJSON(w, http.StatusOK, importResponse{ImportResult: res, mutationResponse: mutated(sess, "")})
}

type modeRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleSetModeEnabled(w http.ResponseWriter, r *http.Request) {
	mode, err := intake.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req modeRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	sess := sessionFrom(r)
	if err := sess.SetModeEnabled(sectionFrom(r), mode, req.Enabled); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutated(sess, ""))
}

type modeUnitRequest struct {
	Unit string `json:"unit"`
}

func (s *Server) handleSetModeUnit(w http.ResponseWriter, r *http.Request) {
	mode, err := intake.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req modeUnitRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	sess := sessionFrom(r)
	if err := sess.SetModeUnit(sectionFrom(r), mode, req.Unit); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutated(sess, ""))
}

type compactRequest struct {
	Compact bool `json:"compact"`
}

func (s *Server) handleSetCompact(w http.ResponseWriter, r *http.Request) {
	var req compactRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	sess := sessionFrom(r)
	if err := sess.SetCompact(sectionFrom(r), req.Compact); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutated(sess, ""))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := sessionFrom(r).Snapshot(sectionFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAddEnergy(w http.ResponseWriter, r *http.Request) {
	var in intake.EnergyInput
	if err := s.decodeJSON(w, r, &in, true); err != nil {
		s.fail(w, r, err)
		return
	}
	sess := sessionFrom(r)
	id, err := sess.AddEnergy(in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mutated(sess, id))
}

func (s *Server) handleUpdateEnergy(w http.ResponseWriter, r *http.Request) {
	var u intake.EnergyUpdate
	if err := s.decodeJSON(w, r, &u, false); err != nil {
		s.fail(w, r, err)
		return
	}
	sess := sessionFrom(r)
	id := chi.URLParam(r, "entryID")
	if err := sess.UpdateEnergy(id, u); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutated(sess, id))
}

// handleRemoveEnergy deletes an energy entry. Unknown ids report removed=false.
func (s *Server) handleRemoveEnergy(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	id := chi.URLParam(r, "entryID")
	removed := sess.RemoveEnergy(id)
	resp := mutated(sess, id)
	resp.Removed = &removed
	writeJSON(w, http.StatusOK, resp)
}
