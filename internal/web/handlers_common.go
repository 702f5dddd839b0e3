package web

// handlers_common.go holds request decoding and response shapes shared by
// the session, section, energy and export handlers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/JonMunkholm/lca-intake/internal/intake"
)

// mutationResponse is returned by every state-changing handler so the
// caller can refresh its QC banner without a second request.
type mutationResponse struct {
	ID        string          `json:"id,omitempty"`
	Removed   *bool           `json:"removed,omitempty"`
	Revision  uint64          `json:"revision"`
	QC        intake.QCResult `json:"qc"`
	QCMessage string          `json:"qc_message"`
}

func mutated(sess *intake.Session, id string) mutationResponse {
	qc := sess.QC()
	return mutationResponse{
		ID:        id,
		Revision:  sess.Revision(),
		QC:        qc,
		QCMessage: qc.Message(),
	}
}

// decodeJSON reads a size-limited JSON body into v. Unknown fields are
// rejected. An empty body is an error unless optional is set.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			if optional {
				return nil
			}
			return fmt.Errorf("%w: empty body", errInvalidBody)
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON value", errInvalidBody)
	}
	return nil
}

// clientIP returns the host part of RemoteAddr, which TrustedRealIP has
// already replaced with the forwarded client address when appropriate.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
