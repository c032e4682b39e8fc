package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/forest-guardian/truecolor-cli/internal/cache"
	"github.com/forest-guardian/truecolor-cli/internal/history"
	"github.com/forest-guardian/truecolor-cli/internal/imaging"
	"github.com/forest-guardian/truecolor-cli/internal/layer"
	"github.com/forest-guardian/truecolor-cli/internal/logger"
	"github.com/forest-guardian/truecolor-cli/internal/notification"
	"github.com/forest-guardian/truecolor-cli/internal/properties"
	"github.com/forest-guardian/truecolor-cli/internal/sentinel"
	"github.com/forest-guardian/truecolor-cli/internal/submission"
	"github.com/forest-guardian/truecolor-cli/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var errSubmissionFailed = errors.New("submission failed")

// app holds everything built from the configuration at startup.
type app struct {
	cfg       *properties.Config
	log       zerolog.Logger
	notifier  *notification.Notifier
	ledger    *history.Ledger
	submitter *submission.Submitter
	console   *ui.Console
}

var current *app

func printBanner() {
	figure1 := figure.NewFigure("Truecolor", "isometric1", true)
	figure2 := figure.NewFigure("CLI", "isometric1", true)
	bannercolor.Cyan(figure1.String())
	bannercolor.Cyan(figure2.String())
	fmt.Println()
}

func newApp() (*app, error) {
	properties.LoadEnv()
	cfg, err := properties.Load()
	if err != nil {
		return nil, err
	}

	log := logger.Build(logger.Config{Level: cfg.LogLevel, Console: cfg.LogConsole, Component: "truecolor"}, os.Stderr)
	console := ui.NewConsole(os.Stdin, os.Stdout)
	if !cfg.HasCredentials() {
		console.PrintWarning("SH_CLIENT_ID and SH_CLIENT_SECRET are not set. Image requests will fail until they are configured.")
	}

	notifier := notification.NewNotifier(cfg.DiscordErrorURL, cfg.DiscordSuccessURL)
	ledger := history.NewLedger(cfg.HistoryFile)
	builder := sentinel.NewBuilder(cfg, &log)
	width, height := builder.Dimensions()
	log.Debug().Int("width", width).Int("height", height).Float64("resolution", cfg.Resolution).Msg("output dimensions")

	submitter := submission.New(builder, sentinel.NewClient(cfg, &log),
		submission.WithStore(cache.NewResponseStore(cfg.DataFolder)),
		submission.WithDisplay(imaging.NewPreviewRenderer(cfg.PreviewFolder)),
		submission.WithLedger(ledger),
		submission.WithNotifier(notifier),
		submission.WithLayerLoader(layer.Load),
		submission.WithLogger(&log),
	)

	return &app{
		cfg:       cfg,
		log:       log,
		notifier:  notifier,
		ledger:    ledger,
		submitter: submitter,
		console:   console,
	}, nil
}

var rootCmd = &cobra.Command{
	Use:           "truecolor",
	Short:         "Fetch and preview Sentinel-2 true color imagery",
	Long:          "truecolor requests Sentinel-2 L1C imagery for a configured area from the Sentinel Hub Process API, previews it and optionally keeps it on disk.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		current = a
		return nil
	},
	RunE: runMenu,
}

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Start the interactive menu (default)",
	RunE:  runMenu,
}

func runMenu(cmd *cobra.Command, args []string) error {
	printBanner()
	return ui.NewMenu(current.console, current.submitter, current.ledger).ShowMenu(cmd.Context())
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch imagery for a date range",
	Long: `Fetch imagery for a date range without the interactive menu.

Examples:
  truecolor fetch --start 2024-01-01 --end 2024-01-10
  truecolor fetch --start 2024-01-01 --end 2024-01-10 --format PNG --mode cloud-mask --download`,
	RunE: func(cmd *cobra.Command, args []string) error {
		start, _ := cmd.Flags().GetString("start")
		end, _ := cmd.Flags().GetString("end")
		format, _ := cmd.Flags().GetString("format")
		modeFlag, _ := cmd.Flags().GetString("mode")
		download, _ := cmd.Flags().GetBool("download")
		loadLayer, _ := cmd.Flags().GetBool("load-layer")

		mode, err := sentinel.ParseMode(modeFlag)
		if err != nil {
			return err
		}
		if loadLayer && !download {
			return fmt.Errorf("--load-layer requires --download")
		}

		res := current.submitter.Submit(cmd.Context(), submission.Input{
			Start: start,
			End:   end,
			Options: sentinel.OutputOptions{
				FileFormat:    sentinel.FileFormat(strings.ToUpper(strings.TrimSpace(format))),
				PersistToDisk: download,
				Mode:          mode,
				LoadLayer:     loadLayer,
			},
		})
		ui.ReportResult(current.console, res)
		if res.Status == history.StatusFailure {
			return errSubmissionFailed
		}
		return nil
	},
}

var loadLayerCmd = &cobra.Command{
	Use:   "load-layer [path]",
	Short: "Load a downloaded image as a raster layer (latest download if no path is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return ui.LoadLayer(current.console, layer.Load, args[0], "Sentinel Image")
		}
		return ui.NewMenu(current.console, current.submitter, current.ledger).LoadLatestLayer(cmd.Context())
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past submissions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return ui.PrintHistory(current.console, current.ledger)
	},
}

func init() {
	fetchCmd.Flags().String("start", "", "start date (YYYY-MM-DD)")
	fetchCmd.Flags().String("end", "", "end date (YYYY-MM-DD)")
	fetchCmd.Flags().String("format", string(sentinel.FormatTIFF), "output format: TIFF, PNG or JPEG")
	fetchCmd.Flags().String("mode", string(sentinel.ModeTrueColor), "imagery mode: true-color, cloud-mask or with-clouds")
	fetchCmd.Flags().Bool("download", false, "keep the raw response on disk")
	fetchCmd.Flags().Bool("load-layer", false, "load the downloaded image as a raster layer")
	_ = fetchCmd.MarkFlagRequired("start")
	_ = fetchCmd.MarkFlagRequired("end")

	rootCmd.AddCommand(menuCmd, fetchCmd, loadLayerCmd, historyCmd)
}

func recoverPanic() {
	r := recover()
	if r == nil {
		return
	}
	pc, file, line, ok := runtime.Caller(3)
	location := "Unknown location"
	if ok {
		location = fmt.Sprintf("%s:%d in %s", file, line, runtime.FuncForPC(pc).Name())
	}

	fmt.Printf("\n\033[31mPANIC: %v\033[0m\n", r)
	fmt.Printf("\033[31mLocation: %s\033[0m\n", location)
	fmt.Printf("\033[31mExiting...\033[0m\n")

	if current != nil {
		errMessage := fmt.Sprintf("Truecolor CLI panic:\n\n%v\n\nLocation: %s\n\nStack trace:\n%s", r, location, debug.Stack())
		if err := current.notifier.SendError(context.Background(), errMessage); err != nil {
			fmt.Printf("\033[31mFailed to send notification: %s\033[0m\n", err.Error())
		}
	}
	os.Exit(2)
}

func main() {
	defer recoverPanic()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errSubmissionFailed) {
			fmt.Fprintf(os.Stderr, "\033[31mError: %s\033[0m\n", err.Error())
		}
		stop()
		os.Exit(1)
	}
}
