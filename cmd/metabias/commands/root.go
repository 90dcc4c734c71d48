package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"metabias/lib/telemetry"

	"github.com/spf13/cobra"
)

var verbose *bool

func init() {
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}

var rootCmd = &cobra.Command{
	Use:   "metabias",
	Short: "metabias scrapes metacritic reviews and measures per-outlet rating bias.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)
		tel, err := telemetry.SetupFromEnv(cmd.Context(), "metabias")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		go func() {
			<-cmd.Context().Done()
			tel.Shutdown(context.Background())
		}()
		telemetry.InstrumentPerfStats(cmd.Context())
	},
	// no subcommand drops into the interactive menu
	Run: runMenu,
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runMenu(cmd *cobra.Command, args []string) {
	fmt.Println("metabias")
	fmt.Println("  1 - ingest works from a links file")
	fmt.Println("  2 - show outlet bias statistics")
	fmt.Println("  3 - test extraction on a saved html page")
	fmt.Println("  4 - quit")
	fmt.Print("\nchoice: ")

	reader := bufio.NewReader(os.Stdin)
	choice, err := reader.ReadString('\n')
	if err != nil {
		return
	}

	switch strings.TrimSpace(choice) {
	case "1":
		fmt.Print("path to links file: ")
		path, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		runIngest(cmd.Context(), strings.TrimSpace(path))
	case "2":
		runStats(cmd.Context(), false, false)
	case "3":
		fmt.Print("path to html page: ")
		path, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		runParse(cmd.Context(), strings.TrimSpace(path))
	case "4":
	default:
		fmt.Println("unknown choice")
	}
}
