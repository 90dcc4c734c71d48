package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"metabias/lib/bias"
	"metabias/lib/report"
	"metabias/lib/reviewstore"
	"metabias/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	statsAbsolute *bool
	statsExport   *bool
)

func init() {
	statsAbsolute = statsCmd.Flags().Bool("absolute", false,
		"aggregate magnitudes of deviation instead of signed deviation")
	statsExport = statsCmd.Flags().Bool("export", false,
		"also write the per-outlet summary to a date-named csv file")
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize per-outlet rating bias from the stored reviews.",
	Run: func(cmd *cobra.Command, args []string) {
		runStats(cmd.Context(), *statsAbsolute, *statsExport)
	},
}

func runStats(ctx context.Context, absolute, export bool) {
	cfg, err := loadConfig()
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	records, err := reviewstore.New(cfg.StorePath).Load()
	if err != nil {
		serviceutil.Fatal("load store", err)
	}
	if len(records) == 0 {
		fmt.Printf("%s is empty, run an ingest first\n", cfg.StorePath)
		return
	}

	aggregate := bias.Aggregate
	if absolute {
		aggregate = bias.AggregateAbsolute
	}
	summaries, global := aggregate(records)

	report.RenderOutletTable(os.Stdout, summaries, global)
	report.RenderRankings(os.Stdout, summaries, 20)

	if export {
		path := report.ExportFilename(time.Now())
		if err := report.ExportCSV(path, summaries); err != nil {
			serviceutil.Fatal("export summary", err)
		}
		fmt.Println("summary written to", path)
	}
}
