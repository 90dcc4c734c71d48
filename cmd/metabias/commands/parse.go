package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"metabias/lib/scrapers/metacritic"
	"metabias/lib/serviceutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(parseCmd)
}

// parseCmd runs the extractors against a page saved to disk, so
// selector drift after a site redesign can be diagnosed offline.
var parseCmd = &cobra.Command{
	Use:   "parse <page.html>",
	Short: "Extract reviews from a saved html page without fetching anything.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runParse(cmd.Context(), args[0])
	},
}

func runParse(ctx context.Context, path string) {
	f, err := os.Open(path)
	if err != nil {
		serviceutil.Fatal("open page", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		serviceutil.Fatal("parse html", err)
	}

	workID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	facts := metacritic.ExtractWorkFacts(doc)
	records := metacritic.ExtractReviews(ctx, doc, workID, facts)

	fmt.Printf("critic aggregate: %s   user aggregate: %s\n",
		intCell(facts.CriticAggregate), floatCell(facts.UserAggregate))

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"outlet", "outlet id", "score"})
	for _, r := range records {
		t.AppendRow(table.Row{r.OutletName, r.OutletID, intCell(r.OutletScore)})
	}
	t.Render()
	fmt.Printf("%d scored reviews extracted\n", len(records))
}

func intCell(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func floatCell(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}
