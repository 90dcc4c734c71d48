package commands

import (
	"context"
	"fmt"

	"metabias/lib/serviceutil"
	"metabias/services/ingestion"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(ingestCmd)
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <links-file>",
	Short: "Scrape every work linked in the given file and store its reviews.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runIngest(cmd.Context(), args[0])
	},
}

func runIngest(ctx context.Context, path string) {
	cfg, err := loadConfig()
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	service := newIngestionService(cfg)
	report, err := service.IngestFile(ctx, path)
	if err != nil {
		serviceutil.Fatal("ingest", err)
	}

	for _, o := range report.Outcomes {
		switch o.Status {
		case ingestion.StatusAdded:
			fmt.Printf("%s: %d reviews (replaced %d)\n", o.WorkID, o.Added, o.Replaced)
		default:
			fmt.Printf("%s: %s\n", o.WorkID, o.Status)
		}
	}
	fmt.Printf("\n%d reviews added across %d works, stored in %s\n",
		report.Added, len(report.Outcomes), cfg.StorePath)
}
