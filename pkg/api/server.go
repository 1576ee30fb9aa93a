package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
	"golang.org/x/time/rate"

	"github.com/zoldy/traitsearch/pkg/log"
	"github.com/zoldy/traitsearch/pkg/query"
)

const (
	internalError   = "Internal server error"
	internalMessage = "An error occurred while processing your request"
	cancelledError  = "Request cancelled"
)

var logger = log.ForService("api")

type Server struct {
	endpoints []*Endpoint
	limiter   *rate.Limiter
}

func NewServer(endpoints ...*Endpoint) *Server {
	return &Server{
		endpoints: endpoints,
	}
}

// SetRateLimit enables a global token bucket. A non-positive rate disables
// it.
func (s *Server) SetRateLimit(requestsPerSecond float64, burst int) {
	if requestsPerSecond <= 0 {
		s.limiter = nil
		return
	}
	s.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// Endpoint returns the endpoint registered under name.
func (s *Server) Endpoint(name string) (*Endpoint, bool) {
	for _, e := range s.endpoints {
		if e.Name() == name {
			return e, true
		}
	}
	return nil, false
}

// Endpoints returns the registered endpoints in registration order.
func (s *Server) Endpoints() []*Endpoint {
	return s.endpoints
}

// Handler returns the routed mux wrapped in the middleware chain: request ids,
// panic recovery, CORS, rate limiting and gzip.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	var h http.Handler = gzhttp.GzipHandler(mux)
	h = s.rateLimitMiddleware(h)
	h = CorsMiddleware(h)
	h = s.recoverMiddleware(h)
	h = RequestIDMiddleware(h)
	return h
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	writeJSON(w, status, response)
}

func writeInternalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, internalError, internalMessage)
}

// writeFailure maps err to a 400 carrying its message when the caller caused
// it, to a 503 when the request context ended first, and to the fixed 500
// otherwise.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	if query.IsClientError(err) {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	if ctxErr := r.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		requestLogger(r).Warnf("request cancelled: %v", err)
		writeError(w, http.StatusServiceUnavailable, cancelledError, "")
		return
	}
	requestLogger(r).Errorf("Error processing request: %v", err)
	writeInternalError(w)
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			requestLogger(r).Warnf("rate limit exceeded for %s", r.URL.Path)
			writeError(w, http.StatusTooManyRequests, "Too many requests", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				requestLogger(r).Errorf("panic serving %s: %v", r.URL.Path, v)
				writeInternalError(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
