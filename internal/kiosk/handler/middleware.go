package handler

import (
	"net/http"
	"strings"
)

// cors applies the kiosk's cross-origin policy. A wildcard origin list
// allows any origin without credentials; an explicit list echoes the
// matching origin and allows the session cookie across.
func (h *Handler) cors(next http.Handler) http.Handler {
	origins := h.cfg.CORSOrigins()
	wildcard := len(origins) == 1 && origins[0] == "*"

	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.ToLower(o)] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		switch {
		case origin == "":
			// Same-origin or non-browser request.
		case wildcard:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case allowed[strings.ToLower(strings.TrimRight(origin, "/"))]:
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		default:
			w.Header().Add("Vary", "Origin")
		}

		if origin != "" {
			w.Header().Set("Access-Control-Expose-Headers", "X-Audio-Content-Type, Content-Disposition")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			reqHeaders := r.Header.Get("Access-Control-Request-Headers")
			if reqHeaders == "" {
				reqHeaders = "Content-Type"
			}
			w.Header().Set("Access-Control-Allow-Headers", reqHeaders)
			w.Header().Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
