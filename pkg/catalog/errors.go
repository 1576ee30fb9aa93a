package catalog

import "fmt"

// DataLoadError reports a dataset that could not be read or parsed. It is
// fatal: a service must not start with a partially loaded catalog.
type DataLoadError struct {
	Path string
	Err  error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("loading dataset %s: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}
