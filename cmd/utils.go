package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/zoldy/traitsearch/data"
	"github.com/zoldy/traitsearch/pkg/api"
	"github.com/zoldy/traitsearch/pkg/catalog"
	"github.com/zoldy/traitsearch/pkg/config"
	"github.com/zoldy/traitsearch/pkg/log"
)

var logger = log.ForService("cmd")

// loadConfig reads the --config file and applies the --debug flag.
func loadConfig(c *cli.Command) (*config.Config, error) {
	if c.Bool("debug") {
		log.SetGlobalDebug(true)
	}

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// datasetPath returns the on-disk path of a dataset, or "" when datasets are
// served from the embedded bundle.
func datasetPath(cfg *config.Config, dataset string) string {
	if cfg.DataDir == "" {
		return ""
	}
	return filepath.Join(cfg.DataDir, dataset)
}

// loadCatalog loads a dataset from data_dir, or from the embedded bundle when
// data_dir is empty.
func loadCatalog(cfg *config.Config, dataset string) (*catalog.Catalog, error) {
	if p := datasetPath(cfg, dataset); p != "" {
		return catalog.LoadFile(p)
	}
	return catalog.Load(data.FS, dataset)
}

// buildEndpoints loads every configured dataset and indexes it. Endpoints
// naming the same dataset share one catalog.
func buildEndpoints(cfg *config.Config) ([]*api.Endpoint, error) {
	catalogs := make(map[string]*catalog.Catalog)
	endpoints := make([]*api.Endpoint, 0, len(cfg.Endpoints))

	for _, ec := range cfg.Endpoints {
		cat, ok := catalogs[ec.Dataset]
		if !ok {
			var err error
			cat, err = loadCatalog(cfg, ec.Dataset)
			if err != nil {
				closeEndpoints(endpoints)
				return nil, fmt.Errorf("endpoint %s: %w", ec.Name, err)
			}
			catalogs[ec.Dataset] = cat
		}

		svc, err := api.BuildService(cat, ec)
		if err != nil {
			closeEndpoints(endpoints)
			return nil, fmt.Errorf("endpoint %s: %w", ec.Name, err)
		}

		e, err := api.NewEndpoint(ec, svc)
		if err != nil {
			svc.Close()
			closeEndpoints(endpoints)
			return nil, err
		}

		logger.Infof("endpoint %s: %d records from %s", ec.Name, cat.Len(), ec.Dataset)
		endpoints = append(endpoints, e)
	}

	return endpoints, nil
}

func closeEndpoints(endpoints []*api.Endpoint) {
	for _, e := range endpoints {
		if err := e.Service().Close(); err != nil {
			logger.Warnf("closing endpoint %s: %v", e.Name(), err)
		}
	}
}
