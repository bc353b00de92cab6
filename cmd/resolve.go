package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/housing-research/internal/geo"
	"github.com/sells-group/housing-research/internal/resolve"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <zip>",
	Short: "Resolve a ZIP code and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Store.QueryTimeout())
		defer cancel()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		resolver, _ := newResolver(st, cfg, nil)
		return runResolve(ctx, os.Stdout, resolver, args[0])
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify <zip>",
	Short: "Explain why a ZIP code has no Census data, without touching the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(os.Stdout, geo.ClassifyZip(args[0]))
	},
}

func runResolve(ctx context.Context, out io.Writer, resolver *resolve.Resolver, zip string) error {
	res, err := resolver.Resolve(ctx, zip)
	if err != nil {
		return eris.Wrapf(err, "resolve %s", zip)
	}
	return printJSON(out, res)
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "write json")
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(classifyCmd)
}
