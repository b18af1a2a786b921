package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"threatintel/core"
)

// SearchResponse is the body of GET /search
type SearchResponse struct {
	Results []string `json:"results"`
	Count   int      `json:"count"`
	Total   int      `json:"total"`
	Stats   any      `json:"stats"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	IOCCount  int    `json:"ioc_count"`
}

// search handles GET /search?q=&limit=
func (a *API) search(w http.ResponseWriter, r *http.Request) {
	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Empty query", nil, a.logger)
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err, a.logger)
		return
	}

	view := a.store.View()
	snap := view.Snapshot()
	results := a.cachedSearch(view, query, limit)

	writeJSON(w, http.StatusOK, SearchResponse{
		Results: results,
		Count:   len(results),
		Total:   len(snap.IOCs),
		Stats:   statsBody(snap),
	})
}

// cachedSearch memoizes results per snapshot generation, so a reload never
// serves stale entries
func (a *API) cachedSearch(view *View, query string, limit int) []string {
	if a.searchCache == nil {
		return view.Search(query, limit)
	}

	key := fmt.Sprintf("%d|%d|%s", view.Generation(), limit, query)
	if results, ok := a.searchCache.Get(key); ok {
		return results
	}
	results := view.Search(query, limit)
	a.searchCache.Add(key, results)
	return results
}

// parseLimit applies the default and clamps to [1, MaxSearchLimit]
func parseLimit(raw string) (int, error) {
	if raw == "" {
		return DefaultSearchLimit, nil
	}
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("limit must be an integer: %w", err)
	}
	return max(1, min(limit, MaxSearchLimit)), nil
}

// getStats handles GET /stats
func (a *API) getStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statsBody(a.store.Snapshot()))
}

// healthCheck handles GET /health; it answers even when no data is loaded
func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		IOCCount:  len(a.store.Snapshot().IOCs),
	})
}

// statsBody renders missing stats as an empty object
func statsBody(snap *core.Snapshot) any {
	if snap.Stats == nil {
		return struct{}{}
	}
	return snap.Stats
}
