package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JonMunkholm/lca-intake/internal/intake"
	"github.com/JonMunkholm/lca-intake/internal/logging"
	"github.com/JonMunkholm/lca-intake/internal/metrics"
)

// handleCreateSession starts a session. A non-empty body is read as an
// intake document (YAML or JSON) and replayed onto the new session.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodySize))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var doc *intake.Document
	if len(bytes.TrimSpace(body)) > 0 {
		d, err := intake.ParseDocument(body)
		if err != nil {
			s.fail(w, r, fmt.Errorf("%w: %v", errInvalidBody, err))
			return
		}
		doc = &d
	}

	sess, err := s.store.Create()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if doc != nil {
		if err := intake.ApplyDocument(sess, *doc); err != nil {
			s.store.Delete(sess.ID())
			s.fail(w, r, err)
			return
		}
	}

	w.Header().Set("Location", "/api/sessions/"+sess.ID())
	writeJSON(w, http.StatusCreated, sess.State())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).State())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.store.Delete(sessionFrom(r).ID())
	w.WriteHeader(http.StatusNoContent)
}

// handleSetFields applies raw form values. The body is a flat object of
// field name to string value; unknown names reject the whole update.
func (s *Server) handleSetFields(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := s.decodeJSON(w, r, &values, false); err != nil {
		s.fail(w, r, err)
		return
	}
	sess := sessionFrom(r)
	if err := sess.SetFields(values); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutated(sess, ""))
}

type basisRequest struct {
	Type string `json:"type"`
}

func (s *Server) handleSetBasis(w http.ResponseWriter, r *http.Request) {
	var req basisRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	bt, err := intake.ParseBasisType(req.Type)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sess := sessionFrom(r)
	if err := sess.SetBasisType(bt); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutated(sess, ""))
}

type productionModeRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleSetProductionMode(w http.ResponseWriter, r *http.Request) {
	var req productionModeRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	pm, err := intake.ParseProductionMode(req.Mode)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sess := sessionFrom(r)
	if err := sess.SetProductionMode(pm); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutated(sess, ""))
}

type qcResponse struct {
	QC      intake.QCResult `json:"qc"`
	Message string          `json:"message"`
}

func (s *Server) handleQC(w http.ResponseWriter, r *http.Request) {
	qc := sessionFrom(r).QC()
	writeJSON(w, http.StatusOK, qcResponse{QC: qc, Message: qc.Message()})
}

type submitResponse struct {
	Status      string         `json:"status"`
	SubmittedAt *time.Time     `json:"submitted_at"`
	Payload     intake.Payload `json:"payload"`
}

// handleSubmit runs the submission gate. The first violation is returned
// as a 422 with its code and field.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	logger := logging.FromContext(r.Context())

	if err := sess.Submit(); err != nil {
		var subErr *intake.SubmissionError
		if errors.As(err, &subErr) {
			metrics.IncSubmission(subErr.Code)
			logger.Info("submission rejected", "code", subErr.Code, "field", subErr.Field)
		}
		s.fail(w, r, err)
		return
	}

	metrics.IncSubmission("")
	st := sess.State()
	logger.Info("submission accepted", "revision", st.Revision)
	writeJSON(w, http.StatusOK, submitResponse{
		Status:      "submitted",
		SubmittedAt: st.SubmittedAt,
		Payload:     sess.Payload(),
	})
}
