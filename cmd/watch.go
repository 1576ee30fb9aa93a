package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zoldy/traitsearch/pkg/api"
	"github.com/zoldy/traitsearch/pkg/catalog"
	"github.com/zoldy/traitsearch/pkg/config"
	"github.com/zoldy/traitsearch/pkg/search"
)

// settleDelay gives editors doing atomic writes time to finish before the
// file is read.
const settleDelay = 100 * time.Millisecond

// datasetWatcher reloads endpoint datasets when their files change. Methods
// are safe on a nil watcher, which never delivers events.
type datasetWatcher struct {
	cfg       *config.Config
	endpoints []*api.Endpoint
	watcher   *fsnotify.Watcher
}

func newDatasetWatcher(cfg *config.Config, endpoints []*api.Endpoint) (*datasetWatcher, error) {
	if cfg.DataDir == "" {
		return nil, errors.New("watching requires data_dir; embedded datasets never change")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating dataset watcher: %w", err)
	}

	// Watch directories rather than files so replaced files keep being seen.
	dirs := make(map[string]bool)
	for _, e := range cfg.Endpoints {
		dir := filepath.Dir(datasetPath(cfg, e.Dataset))
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
		dirs[dir] = true
		logger.Infof("Watching %s for dataset changes", dir)
	}

	return &datasetWatcher{cfg: cfg, endpoints: endpoints, watcher: watcher}, nil
}

func (w *datasetWatcher) Events() <-chan fsnotify.Event {
	if w == nil {
		return nil
	}
	return w.watcher.Events
}

func (w *datasetWatcher) Errors() <-chan error {
	if w == nil {
		return nil
	}
	return w.watcher.Errors
}

func (w *datasetWatcher) Close() error {
	if w == nil {
		return nil
	}
	return w.watcher.Close()
}

func (w *datasetWatcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	time.Sleep(settleDelay)

	n, err := reloadDataset(w.cfg, w.endpoints, event.Name)
	if err != nil {
		logger.Errorf("Failed to reload %s, keeping the previous data: %v", event.Name, err)
		return
	}
	if n > 0 {
		logger.Infof("Reloaded %s for %d endpoint(s)", event.Name, n)
	}
}

// reloadDataset rebuilds every endpoint serving the dataset at path and swaps
// the new services in. Replaced services are closed once in-flight requests
// have had the shutdown timeout to finish. On error no endpoint is changed.
func reloadDataset(cfg *config.Config, endpoints []*api.Endpoint, path string) (int, error) {
	path = filepath.Clean(path)

	var matched []*api.Endpoint
	var dataset string
	for _, e := range endpoints {
		if filepath.Clean(datasetPath(cfg, e.Config().Dataset)) == path {
			matched = append(matched, e)
			dataset = e.Config().Dataset
		}
	}
	if len(matched) == 0 {
		return 0, nil
	}

	cat, err := loadCatalog(cfg, dataset)
	if err != nil {
		return 0, err
	}

	services := make([]*search.Service, 0, len(matched))
	for _, e := range matched {
		svc, err := api.BuildService(cat, e.Config())
		if err != nil {
			for _, s := range services {
				s.Close()
			}
			return 0, err
		}
		services = append(services, svc)
	}

	for i, e := range matched {
		old := e.Swap(services[i])
		retire(old, cfg.ShutdownTimeout.Duration)
	}

	logReload(cat, matched)
	return len(matched), nil
}

func retire(svc *search.Service, after time.Duration) {
	time.AfterFunc(after, func() {
		if err := svc.Close(); err != nil {
			logger.Warnf("closing replaced index: %v", err)
		}
	})
}

func logReload(cat *catalog.Catalog, endpoints []*api.Endpoint) {
	for _, e := range endpoints {
		logger.Debugf("endpoint %s now serves %d records", e.Name(), cat.Len())
	}
}
