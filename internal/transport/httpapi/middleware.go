package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"medsched/backend/internal/domain"
	"medsched/backend/internal/service/directory"
)

// subjectHeader carries the authenticated subject set by the auth gateway in
// front of this service. Credential checking itself happens upstream.
const subjectHeader = "X-Auth-Subject"

type ctxKey int

const actorKey ctxKey = iota

// withActor resolves the authenticated subject to an actor and injects it
// into the request context. Every scheduling route runs behind it.
func (s *Server) withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := strings.TrimSpace(r.Header.Get(subjectHeader))
		if subject == "" {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing "+subjectHeader+" header")
			return
		}

		actor, err := s.directory.Resolve(r.Context(), subject)
		if err != nil {
			var cfgErr *directory.ConfigError
			if errors.As(err, &cfgErr) {
				// Broken provisioning, not a policy denial.
				s.log.Error("actor resolution failed", slog.Any("err", err), slog.String("subject", subject))
				writeError(w, http.StatusInternalServerError, "provisioning", "identity is not provisioned correctly")
				return
			}
			var vErr *directory.ValidationError
			if errors.As(err, &vErr) {
				writeError(w, http.StatusUnauthorized, "unauthenticated", vErr.Error())
				return
			}
			s.log.Error("actor resolution failed", slog.Any("err", err), slog.String("subject", subject))
			writeError(w, http.StatusInternalServerError, "internal", "internal error")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
	})
}

func actorFrom(ctx context.Context) domain.Actor {
	actor, _ := ctx.Value(actorKey).(domain.Actor)
	return actor
}
