// Command filterctl inspects the condition catalog, compiles filter trees
// and fetches rows from a query endpoint.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/matthewbaird/tablefilter/internal/fetch"
	"github.com/matthewbaird/tablefilter/internal/filter/builder"
	"github.com/matthewbaird/tablefilter/internal/filter/catalog"
	"github.com/matthewbaird/tablefilter/internal/filter/tree"
	"github.com/matthewbaird/tablefilter/internal/rows"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool
	rootCmd := &cobra.Command{
		Use:          "filterctl",
		Short:        "Work with table filters",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")

	logger := func(cmd *cobra.Command) zerolog.Logger {
		if !verbose {
			return zerolog.Nop()
		}
		return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).With().Timestamp().Logger()
	}

	cat := catalog.Default()
	rootCmd.AddCommand(
		newPropertiesCmd(cat),
		newConditionsCmd(cat),
		newCompileCmd(cat),
		newFetchCmd(logger),
	)
	return rootCmd
}

func newPropertiesCmd(cat *catalog.Catalog) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "properties",
		Short: "List filterable properties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				return printJSON(cmd.OutOrStdout(), cat.Properties())
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LABEL\tVALUE\tTYPE\tOPTIONS")
			for _, p := range cat.Properties() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Label, p.Value, p.Type, strings.Join(p.Options, ", "))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newConditionsCmd(cat *catalog.Catalog) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "conditions <property-type>",
		Short: "List the conditions available for a property type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pt := catalog.PropertyType(args[0])
			if !pt.Valid() {
				return fmt.Errorf("unknown property type %q", args[0])
			}
			conds := cat.ConditionsFor(pt)
			if asJSON {
				return printJSON(cmd.OutOrStdout(), conds)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LABEL\tVALUE\tINVERSE\tNOT")
			for _, c := range conds {
				not := "yes"
				if c.UnsupportedForNot {
					not = "no"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Label, c.Value, c.InverseConditionValue, not)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newCompileCmd(cat *catalog.Catalog) *cobra.Command {
	return &cobra.Command{
		Use:   "compile [file|-]",
		Short: "Compile a filter tree into its query payload",
		Long: `Compile reads a filter tree as JSON from a file, or from stdin when the
argument is "-" or omitted, and prints the payload sent to the query endpoint.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			root, err := tree.Parse(data, catalog.MaxFilterDepth)
			if err != nil {
				return err
			}
			p, err := builder.New(cat, builder.WithInitialTree(root)).Apply()
			if err != nil {
				var notErr *builder.UnsupportedNotError
				if errors.As(err, &notErr) {
					for _, c := range notErr.Conditions {
						fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", c)
					}
				}
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
}

func newFetchCmd(logger func(*cobra.Command) zerolog.Logger) *cobra.Command {
	var (
		url       string
		sortBy    string
		direction string
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "fetch [file|-]",
		Short: "Fetch rows for a query payload",
		Long: `Fetch posts a query payload, read from a file or stdin, to the data
endpoint under --url and prints the rows it returns. Without input the
query is unfiltered.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var q rows.Query
			if len(args) > 0 {
				data, err := readInput(cmd, args)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(data, &q); err != nil {
					return fmt.Errorf("decoding query: %w", err)
				}
			}
			if sortBy != "" {
				dir := rows.Direction(direction)
				if dir != rows.Ascending && dir != rows.Descending {
					return fmt.Errorf("direction must be %q or %q", rows.Ascending, rows.Descending)
				}
				q.Sort = &rows.Sort{Property: sortBy, Direction: dir}
			}

			c := fetch.NewClient(url, fetch.WithTimeout(timeout), fetch.WithLogger(logger(cmd)))
			return printJSON(cmd.OutOrStdout(), c.FetchRows(cmd.Context(), q))
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://localhost:8080/api", "base URL of the query endpoint")
	cmd.Flags().StringVar(&sortBy, "sort", "", "row field to sort by, e.g. EstimatedValue")
	cmd.Flags().StringVar(&direction, "direction", string(rows.Ascending), "sort direction")
	cmd.Flags().DurationVar(&timeout, "timeout", fetch.DefaultTimeout, "request timeout")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", args[0], err)
	}
	return data, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
