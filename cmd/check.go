package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/zoldy/traitsearch/pkg/api"
	"github.com/zoldy/traitsearch/pkg/config"
)

// CheckCommand creates the check command
func CheckCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Load and index every configured dataset without serving",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			return checkDatasets(os.Stdout, cfg)
		},
	}
}

// checkDatasets builds each endpoint's index and reports its record count.
// Every endpoint is checked even after a failure.
func checkDatasets(w io.Writer, cfg *config.Config) error {
	var errs []error

	for _, ec := range cfg.Endpoints {
		cat, err := loadCatalog(cfg, ec.Dataset)
		if err != nil {
			fmt.Fprintf(w, "✗ %-18s %s: %v\n", ec.Name, ec.Dataset, err)
			errs = append(errs, fmt.Errorf("endpoint %s: %w", ec.Name, err))
			continue
		}

		svc, err := api.BuildService(cat, ec)
		if err != nil {
			fmt.Fprintf(w, "✗ %-18s %s: %v\n", ec.Name, ec.Dataset, err)
			errs = append(errs, fmt.Errorf("endpoint %s: %w", ec.Name, err))
			continue
		}
		svc.Close()

		fmt.Fprintf(w, "✓ %-18s %-22s %d records\n", ec.Name, ec.Dataset, cat.Len())
	}

	return errors.Join(errs...)
}
