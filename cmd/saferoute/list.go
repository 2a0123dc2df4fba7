package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/saferoute-dev/saferoute/internal/dev"
	"github.com/saferoute-dev/saferoute/internal/errors"
	"github.com/saferoute-dev/saferoute/internal/pipeline"
	"github.com/saferoute-dev/saferoute/pkg/router"
)

var errNoMatch = stderrors.New("no route matches")

func listCmd() *cobra.Command {
	var (
		flags   projectFlags
		asJSON  bool
		matchTo string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the route table",
		Long: `Scan the project and print every route without writing the artifact.

Examples:
  saferoute list -t next-app
  saferoute list -t react --json
  saferoute list -t next-page --match /blog/hello-world`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			p, err := pipeline.New(pipeline.Options{Logger: newLogger(stderr, flags.verbose)})
			if err != nil {
				return err
			}
			table, err := p.Build(cmd.Context(), job(cfg))
			if err != nil {
				return errors.Classify(err).ResolveContext(cfg.Dir())
			}

			out := cmd.OutOrStdout()
			if matchTo != "" {
				return printMatch(cmd, table, matchTo)
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(dev.RoutesFromTable(table))
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PATTERN\tPARAMS\tSOURCE")
			for _, e := range table.Entries() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Key(), formatParams(e.Params), e.Source)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d routes\n", table.Len())
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the table as JSON")
	cmd.Flags().StringVar(&matchTo, "match", "", "Print the route a concrete path resolves to")

	return cmd
}

func printMatch(cmd *cobra.Command, table *router.RouteTable, path string) error {
	entry, params, ok := router.NewMatcher(table).Match(path)
	if !ok {
		return fmt.Errorf("%w: %s", errNoMatch, path)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  (%s)\n", entry.Key(), entry.Source)
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %s = %q\n", name, params[name])
	}
	return nil
}

func formatParams(params []router.Param) string {
	if len(params) == 0 {
		return "-"
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Name + ": " + string(p.Kind)
	}
	return strings.Join(parts, ", ")
}
