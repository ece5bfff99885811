package api

import (
	"net/http"

	"github.com/technosupport/incident-analytics/internal/search"
)

type SearchHandler struct {
	Engine *search.Engine
}

func NewSearchHandler(engine *search.Engine) *SearchHandler {
	return &SearchHandler{Engine: engine}
}

// GET /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scope, err := search.ParseScope(q.Get("type"))
	if err != nil {
		respondFailure(w, r, err, "Search failed")
		return
	}
	limit, err := intParam(q, "limit", search.DefaultLimit)
	if err == nil {
		err = check("limit", searchParams{Limit: limit})
	}
	if err != nil {
		respondFailure(w, r, err, "Search failed")
		return
	}

	res, err := h.Engine.Search(r.Context(), search.Query{Text: q.Get("q"), Scope: scope, Limit: limit})
	if err != nil {
		respondFailure(w, r, err, "Search failed")
		return
	}
	respondJSON(w, http.StatusOK, res)
}
