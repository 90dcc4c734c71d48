// Package report formats aggregation output for the terminal and for
// csv export. It only consumes outlet summaries; nothing here feeds
// back into storage or aggregation.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"metabias/lib/bias"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

func signed(v float64) string {
	return fmt.Sprintf("%+.2f", v)
}

func audienceCell(s bias.OutletSummary, v float64) string {
	if !s.HasAudience {
		return "N/A"
	}
	return signed(v)
}

// RenderOutletTable prints the per-outlet bias table followed by the
// global summary and legend. Outlets whose audience bias magnitude
// reaches the 90th-percentile threshold are flagged.
func RenderOutletTable(out io.Writer, summaries []bias.OutletSummary, global bias.GlobalSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(out, "no data to report")
		return
	}

	threshold, hasThreshold := bias.ExtremeThreshold(summaries)

	t := newTable(out)
	t.AppendHeader(table.Row{"Outlet", "Reviews", "vs PRO mean", "vs PRO median", "vs Users mean", "vs Users median", ""})
	for _, s := range summaries {
		flag := ""
		if hasThreshold && bias.IsExtreme(s, threshold) {
			flag = "extreme"
		}
		t.AppendRow(table.Row{
			s.OutletName,
			s.ReviewCount,
			signed(s.CriticMean),
			signed(s.CriticMedian),
			audienceCell(s, s.AudienceMean),
			audienceCell(s, s.AudienceMedian),
			flag,
		})
	}
	t.SetColumnConfigs(numericColumns(2, 6))
	t.Render()

	fmt.Fprintf(out, "\nmean outlet bias vs PRO   : %s (std dev %.2f)\n", signed(global.CriticMean), global.CriticStdDev)
	if global.AudienceOutletCount > 0 {
		fmt.Fprintf(out, "mean outlet bias vs Users : %s (std dev %.2f)\n", signed(global.AudienceMean), global.AudienceStdDev)
	}
	fmt.Fprintf(out, "outlets: %d | reviews analyzed: %d\n", global.OutletCount, global.ReviewCount)
	fmt.Fprintln(out, "\npositive bias = outlet rates higher than the aggregate, negative = lower")
}

// RenderRankings prints the two magnitude-variant rankings: the most
// biased outlets (low-volume outlets excluded) and the most volatile
// ones (no volume floor).
func RenderRankings(out io.Writer, summaries []bias.OutletSummary, limit int) {
	if len(summaries) == 0 {
		fmt.Fprintln(out, "no data to report")
		return
	}

	fmt.Fprintln(out, "most biased vs users")
	t := newTable(out)
	t.AppendHeader(table.Row{"Outlet", "Reviews", "|bias| vs Users", "|bias| vs PRO"})
	for _, s := range bias.RankByAudienceBias(summaries, limit) {
		t.AppendRow(table.Row{
			s.OutletName,
			s.ReviewCount,
			fmt.Sprintf("%.2f", s.AudienceMean),
			fmt.Sprintf("%.2f", s.CriticMean),
		})
	}
	t.SetColumnConfigs(numericColumns(2, 4))
	t.Render()

	fmt.Fprintln(out, "\nmost volatile vs users")
	t = newTable(out)
	t.AppendHeader(table.Row{"Outlet", "Reviews", "std dev vs Users"})
	for _, s := range bias.RankByVolatility(summaries, limit) {
		t.AppendRow(table.Row{
			s.OutletName,
			s.ReviewCount,
			fmt.Sprintf("%.2f", s.AudienceStdDev),
		})
	}
	t.SetColumnConfigs(numericColumns(2, 3))
	t.Render()
}

func numericColumns(from, to int) []table.ColumnConfig {
	var configs []table.ColumnConfig
	for i := from; i <= to; i++ {
		configs = append(configs, table.ColumnConfig{Number: i, Align: text.AlignRight})
	}
	return configs
}

// ExportFilename names the csv artifact after the run date.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("bias_report_%s.csv", now.Format("2006-01-02"))
}

// ExportCSV writes one row per qualifying outlet.
func ExportCSV(path string, summaries []bias.OutletSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"outlet_id", "outlet", "review_count",
		"critic_mean", "critic_median", "critic_stddev",
		"audience_mean", "audience_median", "audience_stddev",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, s := range summaries {
		row := []string{
			s.OutletID,
			s.OutletName,
			strconv.Itoa(s.ReviewCount),
			formatStat(s.CriticMean),
			formatStat(s.CriticMedian),
			formatStat(s.CriticStdDev),
			"", "", "",
		}
		if s.HasAudience {
			row[6] = formatStat(s.AudienceMean)
			row[7] = formatStat(s.AudienceMedian)
			row[8] = formatStat(s.AudienceStdDev)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Sync()
}

func formatStat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
