package api

import (
	"net/http"

	domainerrors "github.com/snipstash/snipstash-server/internal/errors"
	"github.com/snipstash/snipstash-server/internal/http/response"
)

// handleEvents streams the caller's snippet change events over SSE. It is
// a plain chi route because huma does not model long-lived streams.
// EventSource cannot send headers, so a token query parameter is accepted
// in place of the Authorization header.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.sseHandler == nil {
		response.Error(w, http.StatusServiceUnavailable, domainerrors.CodeUnavailable, "event stream not configured", s.logger)
		return
	}

	p, err := GetPrincipal(r.Context())
	if err != nil {
		token := r.URL.Query().Get("token")
		if token == "" || s.services.Auth == nil {
			response.Unauthorized(w, "Authentication required", s.logger)
			return
		}
		p, err = s.services.Auth.VerifyAccessToken(r.Context(), token)
		if err != nil {
			response.Unauthorized(w, "Invalid or expired token", s.logger)
			return
		}
	}

	s.sseHandler.Serve(w, r, p.UserID)
}
