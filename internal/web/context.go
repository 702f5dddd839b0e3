package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/lca-intake/internal/intake"
	"github.com/JonMunkholm/lca-intake/internal/logging"
)

type ctxKey int

const (
	sessionKey ctxKey = iota
	sectionKey
)

// sessionCtx loads the session named in the URL and tags the request's
// loggers with its id.
func (s *Server) sessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.store.Get(chi.URLParam(r, "sessionID"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		ctx := logging.WithSession(r.Context(), sess.ID())
		ctx = context.WithValue(ctx, sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sectionCtx validates the section named in the URL.
func sectionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind, err := intake.ParseKind(chi.URLParam(r, "section"))
		if err != nil {
			respondError(w, r, err, http.StatusNotFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sectionKey, kind)))
	})
}

func sessionFrom(r *http.Request) *intake.Session {
	return r.Context().Value(sessionKey).(*intake.Session)
}

func sectionFrom(r *http.Request) intake.Kind {
	return r.Context().Value(sectionKey).(intake.Kind)
}
