package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/housing-research/internal/model"
	"github.com/sells-group/housing-research/internal/store"
)

var metroTop int

var metroCmd = &cobra.Command{
	Use:   "metro",
	Short: "Metro area backfill and coverage",
}

var metroSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy cbsa_name into metro_area where metro_area is missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.SyncMetroAreas(ctx)
		if err != nil {
			return eris.Wrap(err, "metro sync")
		}
		zap.L().Info("metro areas synced", zap.Int64("rows_updated", n))
		return nil
	},
}

var metroStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show CBSA and metro_area coverage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return metroStatus(ctx, os.Stdout, st, metroTop)
	},
}

func metroStatus(ctx context.Context, out io.Writer, st store.MetroSyncer, top int) error {
	cov, err := st.MetroCoverage(ctx)
	if err != nil {
		return eris.Wrap(err, "metro status")
	}
	metro, err := st.TopZips(ctx, true, top)
	if err != nil {
		return eris.Wrap(err, "metro status: top metro zips")
	}
	rural, err := st.TopZips(ctx, false, top)
	if err != nil {
		return eris.Wrap(err, "metro status: top rural zips")
	}

	formatCoverage(out, cov)
	_, _ = fmt.Fprintln(out, "\nTop ZIPs by population with a CBSA:")
	formatZips(out, metro)
	_, _ = fmt.Fprintln(out, "\nTop ZIPs by population without a CBSA:")
	formatZips(out, rural)
	return nil
}

// formatCoverage writes the coverage counters as a two-column table.
func formatCoverage(out io.Writer, cov *model.MetroCoverage) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "TOTAL ZIPS\t%d\n", cov.TotalZips)
	_, _ = fmt.Fprintf(w, "WITH CBSA\t%d\n", cov.WithCBSA)
	_, _ = fmt.Fprintf(w, "DISTINCT METROS\t%d\n", cov.DistinctMetros)
	_, _ = fmt.Fprintf(w, "WITH METRO AREA\t%d\n", cov.WithMetroArea)
	_, _ = fmt.Fprintf(w, "PENDING SYNC\t%d\n", cov.PendingSync)
	_ = w.Flush()
}

func formatZips(out io.Writer, zips []model.ZipSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ZIP\tSTATE\tCOUNTY\tPOPULATION\tMETRO")
	for _, z := range zips {
		county := z.CountyName
		if county == "" {
			county = "-"
		}
		pop := "-"
		if z.Population != nil {
			pop = fmt.Sprintf("%d", *z.Population)
		}
		metro := "NULL"
		if z.MetroArea != nil && *z.MetroArea != "" {
			metro = *z.MetroArea
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", z.ZipCode, z.StateAbbr, county, pop, metro)
	}
	_ = w.Flush()
}

func init() {
	metroStatusCmd.Flags().IntVar(&metroTop, "top", 10, "number of ZIPs to list in each group")
	metroCmd.AddCommand(metroSyncCmd)
	metroCmd.AddCommand(metroStatusCmd)
	rootCmd.AddCommand(metroCmd)
}
