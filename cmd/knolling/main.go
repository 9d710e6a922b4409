package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"knolling-factory/modules/common/config"
	"knolling-factory/modules/common/database"
	"knolling-factory/modules/common/model"
	"knolling-factory/modules/coordinator"
	"knolling-factory/modules/factory"
	"knolling-factory/modules/server"
)

var rootCmd = &cobra.Command{
	Use:   "knolling",
	Short: "Knolling coloring book factory",
	Long: `Turns a theme into a print-ready knolling coloring book.
Each run builds one prompt per page, renders every page with the image model,
checks it with a vision QA pass (up to 3 attempts per page) and assembles the
accepted pages into a single PDF.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("KNOLLING")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(pagesCmd())
	rootCmd.AddCommand(statusCmd())
}

// overrides - CLI 플래그로 덮어쓰는 설정
type overrides struct {
	Tier      string
	Pages     string
	PageCount int
}

// apply - 빈 값은 환경변수 설정 유지
func (o overrides) apply(cfg *config.Config) error {
	if o.Tier != "" {
		tier := config.Tier(strings.ToUpper(o.Tier))
		if tier != config.TierFree && tier != config.TierPaid {
			return fmt.Errorf("unknown tier %q (want FREE or PAID)", o.Tier)
		}
		cfg.SetTier(tier)
	}
	if o.Pages != "" {
		cfg.TargetPages = config.ParseTargetPages(o.Pages)
	}
	if o.PageCount != 0 {
		if o.PageCount < 2 {
			return fmt.Errorf("page count must be at least 2, got %d", o.PageCount)
		}
		cfg.PageCount = o.PageCount
	}
	return nil
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <theme>",
		Short: "Generate one coloring book for a theme",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			o := overrides{
				Tier:      viper.GetString("tier"),
				Pages:     viper.GetString("pages"),
				PageCount: viper.GetInt("page-count"),
			}
			if err := o.apply(cfg); err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := factory.Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			observer := coordinator.ObserverFunc(func(ctx context.Context, text string) error {
				_, err := fmt.Fprintln(out, text)
				return err
			})

			result, err := app.Coordinator.Run(ctx, strings.Join(args, " "), observer)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(out, result)
			}
			renderResult(out, result)
			return nil
		},
	}
	cmd.Flags().String("tier", "", "deployment tier (FREE or PAID)")
	cmd.Flags().String("pages", "", "target pages, e.g. 1,3,5-7")
	cmd.Flags().Int("page-count", 0, "total pages in the book")
	_ = viper.BindPFlag("tier", cmd.Flags().Lookup("tier"))
	_ = viper.BindPFlag("pages", cmd.Flags().Lookup("pages"))
	_ = viper.BindPFlag("page-count", cmd.Flags().Lookup("page-count"))
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and queue worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			return server.Run(cmd.Context(), cfg)
		},
	}
}

func pagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pages <expr>",
		Short: "Show which page numbers a TARGET_PAGES expression selects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set := config.ParseTargetPages(args[0])
			if viper.GetBool("json") {
				return printJSON(cmd.OutOrStdout(), set.Sorted())
			}
			fmt.Fprintln(cmd.OutOrStdout(), describePages(set))
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <run-id>",
		Short: "Show a tracked run and its events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			db, err := database.NewClient(config.FromEnv())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			run, err := db.FetchRun(ctx, args[0])
			if err != nil {
				return err
			}
			events, err := db.FetchEvents(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if viper.GetBool("json") {
				return printJSON(out, map[string]interface{}{"run": run, "events": events})
			}
			renderRun(out, run, events)
			return nil
		},
	}
}

func describePages(set config.PageSet) string {
	if set.Unrestricted() {
		return "all pages"
	}
	return fmt.Sprintf("%d pages: %s", len(set), set)
}

func renderResult(w io.Writer, result *model.JobResult) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"#", "Key", "Slot", "Page", "Path"})
	for i, a := range result.Accepted {
		tw.AppendRow(table.Row{i + 1, a.Key, a.Slot, a.PageNumber, a.Path})
	}
	tw.AppendFooter(table.Row{"", "", "", "Rejected", result.Rejected})
	tw.Render()

	fmt.Fprintf(w, "Run:      %s\n", result.RunID)
	fmt.Fprintf(w, "Document: %s\n", result.DocumentRef)
}

func renderRun(w io.Writer, run *database.RunRow, events []database.EventRow) {
	fmt.Fprintf(w, "Run %s (%s) - %s, %d accepted\n", run.RunID, run.Theme, run.RunStatus, run.AcceptedCount)
	if run.DocumentRef != nil {
		fmt.Fprintf(w, "Document: %s\n", *run.DocumentRef)
	}
	if run.ErrorText != nil {
		fmt.Fprintf(w, "Error: %s\n", *run.ErrorText)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Event", "Type", "Accepted", "Message", "At"})
	for _, e := range events {
		tw.AppendRow(table.Row{e.EventID, e.EventType, e.Count, e.Message, e.CreatedAt})
	}
	tw.Render()
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
