package api

import (
	"net/http"

	"github.com/zoldy/traitsearch/pkg/config"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	for _, e := range s.endpoints {
		mux.Handle("GET "+e.Path(), e)
	}
	mux.HandleFunc("GET "+config.HealthPath, s.HandleHealth)
}
