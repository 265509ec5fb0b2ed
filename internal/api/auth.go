package api

import (
	"crypto/subtle"
	"net/http"
)

// requireWrite guards state-changing endpoints: read-only mode refuses
// them, the write limiter throttles them, and a configured token must be
// presented as a Bearer credential.
func (s *Server) requireWrite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.ReadOnly {
			writeError(w, http.StatusForbidden, "read-only mode", "Set FOREMAN_READONLY=false to enable writes")
			return
		}

		if s.writeLimiter != nil && !s.writeLimiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limited", "Too many write requests")
			return
		}

		if s.cfg.Token == "" {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.Token)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid token", "Provide a valid Bearer token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) methodOnly(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
			return
		}
		next(w, r)
	}
}
