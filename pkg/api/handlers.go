package api

import (
	"net/http"
	"time"

	"github.com/zoldy/traitsearch/pkg/query"
	"github.com/zoldy/traitsearch/pkg/version"
)

func (e *Endpoint) serveWeighted(w http.ResponseWriter, r *http.Request) {
	params, err := query.Parse(r.URL.Query(), e.opts)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	results, err := e.Service().Search(r.Context(), params)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

func (e *Endpoint) serveSimple(w http.ResponseWriter, r *http.Request) {
	q, err := query.ParseQueryOnly(r.URL.Query())
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	records, err := e.Service().SearchAll(r.Context(), q)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	catalogs := make(map[string]int, len(s.endpoints))
	for _, e := range s.endpoints {
		catalogs[e.Name()] = e.Service().Catalog().Len()
	}

	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
		Catalogs:  catalogs,
	}

	writeJSON(w, http.StatusOK, health)
}
