package api

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/zoldy/traitsearch/pkg/catalog"
	"github.com/zoldy/traitsearch/pkg/config"
	"github.com/zoldy/traitsearch/pkg/index"
	"github.com/zoldy/traitsearch/pkg/query"
	"github.com/zoldy/traitsearch/pkg/search"
)

// Endpoint serves one configured search route. The search service behind it
// can be replaced at runtime with Swap; in-flight requests keep the service
// they started with.
type Endpoint struct {
	cfg     config.EndpointConfig
	opts    query.Options
	service atomic.Pointer[search.Service]
}

// NewEndpoint validates cfg and binds it to svc.
func NewEndpoint(cfg config.EndpointConfig, svc *search.Service) (*Endpoint, error) {
	if svc == nil {
		return nil, fmt.Errorf("endpoint %s: nil search service", cfg.Name)
	}

	policy, err := query.ParseLimitPolicy(cfg.LimitPolicy)
	if err != nil {
		return nil, fmt.Errorf("endpoint %s: %w", cfg.Name, err)
	}

	e := &Endpoint{
		cfg: cfg,
		opts: query.Options{
			ValidateLengths: cfg.ValidateLengths,
			LimitPolicy:     policy,
			DefaultLimit:    cfg.DefaultLimit,
			MaxLimit:        cfg.MaxLimit,

			PreserveOperators: cfg.ExtendedSyntax,
		},
	}
	e.service.Store(svc)
	return e, nil
}

// IndexOptions translates the matching settings of cfg.
func IndexOptions(cfg config.EndpointConfig) (index.Options, []index.Field) {
	fields := make([]index.Field, 0, len(cfg.Weights))
	for _, w := range cfg.Weights {
		fields = append(fields, index.Field{Name: w.Field, Weight: w.Weight})
	}
	return index.Options{
		Threshold:      cfg.GetThreshold(),
		ExtendedSyntax: cfg.ExtendedSyntax,
		IgnoreLocation: cfg.IgnoreLocation,
	}, fields
}

// BuildService indexes cat with the matching settings of cfg.
func BuildService(cat *catalog.Catalog, cfg config.EndpointConfig) (*search.Service, error) {
	opts, fields := IndexOptions(cfg)
	return search.Build(cat, opts, fields...)
}

func (e *Endpoint) Name() string { return e.cfg.Name }

func (e *Endpoint) Path() string { return e.cfg.Path }

func (e *Endpoint) Config() config.EndpointConfig { return e.cfg }

// Options returns the query parsing options derived from the endpoint config.
func (e *Endpoint) Options() query.Options { return e.opts }

// Service returns the current search service.
func (e *Endpoint) Service() *search.Service { return e.service.Load() }

// Swap installs svc and returns the service it replaced.
func (e *Endpoint) Swap(svc *search.Service) *search.Service {
	return e.service.Swap(svc)
}

func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if e.cfg.Mode == config.ModeSimple {
		e.serveSimple(w, r)
		return
	}
	e.serveWeighted(w, r)
}
