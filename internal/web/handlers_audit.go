package web

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/watchlist/internal/core"
)

// handleAuditLog returns the owner's audit entries, newest first.
//
// Query parameters:
//   - action: import_preview, import_commit or export
//   - since: RFC 3339 timestamp or YYYY-MM-DD date
//   - limit: page size (default 100, max 1000)
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	q := core.AuditQuery{
		OwnerID: ownerID(r),
		Action:  core.AuditAction(r.URL.Query().Get("action")),
		Limit:   parseIntParam(r, "limit", core.DefaultAuditLimit),
	}

	if since := r.URL.Query().Get("since"); since != "" {
		t, ok := parseSince(since)
		if !ok {
			respondError(w, r, core.ValidationErrors{{
				Field:   "since",
				Value:   since,
				Message: "invalid date (use RFC 3339 or YYYY-MM-DD)",
			}}, http.StatusBadRequest)
			return
		}
		q.Since = t
	}

	entries, err := s.service.AuditLog(r.Context(), q)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

func parseSince(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
