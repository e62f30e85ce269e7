package httpapi

import (
	"net/http"
	"time"
)

// ServerInfo describes the running service
type ServerInfo struct {
	APIVersion string         `json:"apiVersion"`
	ServerTime string         `json:"serverTime"`
	Lists      []string       `json:"lists"`
	RateLimit  *RateLimitInfo `json:"rateLimit,omitempty"`
}

// Info handles GET /v1/info
// This endpoint can be called without authentication to allow discovery
func (s *Server) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ServerInfo{
		APIVersion: "1.0",
		ServerTime: time.Now().UTC().Format(time.RFC3339Nano),
		Lists:      s.Exports.Lists(),
		RateLimit:  &s.RateLimitConfig,
	})
}
