package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/zoldy/traitsearch/pkg/api"
	"github.com/zoldy/traitsearch/pkg/catalog"
	"github.com/zoldy/traitsearch/pkg/config"
	"github.com/zoldy/traitsearch/pkg/query"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1).
			Margin(0, 0, 1, 0)

	nameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	blockStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Margin(0, 0, 1, 2)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0)

	titleCaser = cases.Title(language.English)
)

type searchOptions struct {
	Endpoint string
	Values   map[string][]string
	JSON     bool
}

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "endpoint",
			Usage: "Configured endpoint whose dataset and matching settings to use",
			Value: "traits",
		},
		&cli.StringFlag{
			Name:  query.ParamQuery,
			Usage: "Search across all weighted fields",
		},
		&cli.StringFlag{
			Name:  query.ParamLimit,
			Usage: "Maximum number of results, interpreted under the endpoint's limit policy",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print the response body the HTTP endpoint would return",
		},
	}
	for _, field := range query.FieldParams {
		flags = append(flags, &cli.StringFlag{
			Name:  field,
			Usage: fmt.Sprintf("Search the %s field", field),
		})
	}

	return &cli.Command{
		Name:  "search",
		Usage: "Search a dataset from the command line",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			values := make(map[string][]string)
			for _, name := range append([]string{query.ParamQuery, query.ParamLimit}, query.FieldParams...) {
				if c.IsSet(name) {
					values[name] = []string{c.String(name)}
				}
			}

			return runSearch(ctx, os.Stdout, cfg, searchOptions{
				Endpoint: c.String("endpoint"),
				Values:   values,
				JSON:     c.Bool("json"),
			})
		},
	}
}

// runSearch answers one query against a single endpoint, going through the
// same parsing and dispatch as the HTTP server.
func runSearch(ctx context.Context, w io.Writer, cfg *config.Config, opts searchOptions) error {
	ec, err := cfg.Endpoint(opts.Endpoint)
	if err != nil {
		return err
	}

	cat, err := loadCatalog(cfg, ec.Dataset)
	if err != nil {
		return err
	}
	svc, err := api.BuildService(cat, ec)
	if err != nil {
		return err
	}
	defer svc.Close()

	e, err := api.NewEndpoint(ec, svc)
	if err != nil {
		return err
	}

	if ec.Mode == config.ModeSimple {
		q, err := query.ParseQueryOnly(opts.Values)
		if err != nil {
			return err
		}
		records, err := svc.SearchAll(ctx, q)
		if err != nil {
			return err
		}
		if opts.JSON {
			return writeIndented(w, records)
		}
		renderRecords(w, fmt.Sprintf("%d %s matching %q", len(records), ec.Name, q), records)
		return nil
	}

	params, err := query.Parse(opts.Values, e.Options())
	if err != nil {
		return err
	}
	results, err := svc.Search(ctx, params)
	if err != nil {
		return err
	}
	if opts.JSON {
		return writeIndented(w, results)
	}

	title := fmt.Sprintf("%d of %d %s matching %s", results.Returned, results.Total, ec.Name, describeParams(results.Params))
	renderRecords(w, title, results.Records)
	return nil
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func describeParams(params map[string]string) string {
	parts := make([]string, 0, len(params))
	for _, name := range append([]string{query.ParamQuery}, query.FieldParams...) {
		if v, ok := params[name]; ok {
			parts = append(parts, name+"="+strconv.Quote(v))
		}
	}
	return strings.Join(parts, " ")
}

func renderRecords(w io.Writer, title string, records []catalog.Record) {
	fmt.Fprintln(w, titleStyle.Render(title))

	if len(records) == 0 {
		fmt.Fprintln(w, noDataStyle.Render("No results"))
		return
	}

	for _, r := range records {
		fmt.Fprintln(w, blockStyle.Render(formatRecord(r)))
	}
}

func formatRecord(r catalog.Record) string {
	var b strings.Builder
	b.WriteString(nameStyle.Render(r.Name))
	if len(r.Tags) > 0 {
		b.WriteString(" ")
		b.WriteString(metaStyle.Render("[" + strings.Join(r.Tags, ", ") + "]"))
	}
	if r.Description != "" {
		b.WriteString("\n")
		b.WriteString(r.Description)
	}
	for _, e := range r.Effects {
		b.WriteString("\n  • ")
		b.WriteString(formatEffect(e))
	}
	return b.String()
}

func formatEffect(e catalog.Effect) string {
	label := titleCaser.String(strings.ReplaceAll(e.Type, "_", " "))
	line := label + ": " + e.Value

	var meta []string
	if len(e.Scope) > 0 {
		meta = append(meta, "scope "+strings.Join(e.Scope, "/"))
	}
	if e.Condition != "" {
		meta = append(meta, e.Condition)
	}
	if e.Duration != "" {
		meta = append(meta, e.Duration)
	}
	if e.Stacks > 0 {
		meta = append(meta, fmt.Sprintf("stacks x%d", e.Stacks))
	}
	if len(meta) > 0 {
		line += " " + metaStyle.Render("("+strings.Join(meta, ", ")+")")
	}
	return line
}
