package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/backtest/engine"
	enginev1 "github.com/guozhongyan/anxiousmonkey-backtests/internal/backtest/engine/engine_v1"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/metrics"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/store"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/writer"
	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/marketdata"
)

// runAction loads the config, runs every (symbol, horizon) pair and prints a
// one-line summary per run.
func runAction(ctx context.Context, cmd *cli.Command) error {
	config, err := os.ReadFile(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	backtester := enginev1.NewBacktestEngineV1()

	if err := backtester.Initialize(string(config)); err != nil {
		return fmt.Errorf("failed to initialize backtest engine: %w", err)
	}

	if err := backtester.SetDataPath(cmd.String("data")); err != nil {
		return fmt.Errorf("failed to set data path: %w", err)
	}

	if err := backtester.SetResultsFolder(cmd.String("results")); err != nil {
		return fmt.Errorf("failed to set results folder: %w", err)
	}

	if !cmd.Bool("no-metrics") {
		if err := backtester.SetMetrics(metrics.NewRecorder("backtest")); err != nil {
			return err
		}
	}

	if dbPath := cmd.String("ledger"); dbPath != "" {
		runStore, err := store.NewSQLiteRunStore(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open run ledger: %w", err)
		}
		defer runStore.Close()

		if err := backtester.SetRunStore(runStore); err != nil {
			return err
		}
	}

	var bar *progressbar.ProgressBar

	onStart := engine.OnBacktestStartCallback(func(totalSymbols int, totalHorizons int) error {
		bar = progressbar.NewOptions(totalSymbols*totalHorizons,
			progressbar.OptionSetDescription("Backtesting"),
			progressbar.OptionShowCount())

		return nil
	})
	onProgress := engine.OnProcessDataCallback(func(current int, _ int) error {
		return bar.Set(current)
	})
	onSkip := engine.OnSkipCallback(func(symbol string, horizon int, reason string, err error) {
		fmt.Fprintf(os.Stderr, "\nskipped %s h=%d (%s): %v\n", symbol, horizon, reason, err)
	})

	results, err := backtester.Run(ctx, engine.LifecycleCallbacks{
		OnBacktestStart: &onStart,
		OnProcessData:   &onProgress,
		OnSkip:          &onSkip,
	})
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}

	if results != nil {
		printSummary(results)
	}

	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	if publish := cmd.String("publish"); publish != "" {
		merged, err := writer.MergeResults(publish, results)
		if err != nil {
			return fmt.Errorf("failed to publish results: %w", err)
		}

		log.Printf("Published %d symbols to %s", len(merged.Symbols), publish)
	}

	return nil
}

func printSummary(results *types.Results) {
	for _, symbol := range results.SymbolNames() {
		for modelVersion, horizons := range results.Symbols[symbol] {
			keys := make([]string, 0, len(horizons))
			for key := range horizons {
				keys = append(keys, key)
			}

			sort.Slice(keys, func(i, j int) bool { return len(keys[i]) < len(keys[j]) || (len(keys[i]) == len(keys[j]) && keys[i] < keys[j]) })

			for _, key := range keys {
				stats := horizons[key].Stats
				fmt.Printf("%-10s %-4s %4s  sharpe=%.4f cagr=%.4f maxdd=%.4f turnover=%.4f\n",
					symbol, modelVersion, key, float64(stats.Sharpe), float64(stats.CAGR),
					float64(stats.MaxDD), float64(stats.Turnover))
			}
		}
	}
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	var (
		schema string
		err    error
	)

	if provider := cmd.String("provider"); provider != "" {
		schema, err = marketdata.GetDownloadConfigSchema(provider)
	} else {
		schema, err = enginev1.NewBacktestEngineV1().GetConfigSchema()
	}

	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

// downloadAction fetches daily bars for every ticker into the data directory.
func downloadAction(ctx context.Context, cmd *cli.Command) error {
	providerFlag := cmd.String("provider")
	dataPath := cmd.String("data")

	clientConfig := marketdata.ClientConfig{
		ProviderType:  marketdata.ProviderType(providerFlag),
		DataPath:      dataPath,
		PolygonApiKey: os.Getenv("POLYGON_API_KEY"),
	}

	var bar *progressbar.ProgressBar

	client, err := marketdata.NewClient(clientConfig, func(current float64, total float64, message string) {
		if bar == nil {
			bar = progressbar.NewOptions(int(total), progressbar.OptionSetDescription(message))
		}

		_ = bar.Set(int(current))
	})
	if err != nil {
		return fmt.Errorf("failed to create market data client: %w", err)
	}

	tickers := strings.Split(cmd.String("tickers"), ",")
	for i := range tickers {
		tickers[i] = strings.TrimSpace(tickers[i])
	}

	startDate := cmd.Timestamp("start")
	endDate := cmd.Timestamp("end")

	log.Printf("Starting download for %s from %s to %s using %s provider...",
		strings.Join(tickers, ","), startDate.Format(time.DateOnly), endDate.Format(time.DateOnly), providerFlag)

	paths, err := client.Download(ctx, marketdata.DownloadParams{
		Tickers:   tickers,
		StartDate: startDate,
		EndDate:   endDate,
	})
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}

	for _, path := range paths {
		log.Printf("Wrote %s", path)
	}

	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	return nil
}

// runsAction prints the run ledger.
func runsAction(ctx context.Context, cmd *cli.Command) error {
	runStore, err := store.NewSQLiteRunStore(cmd.String("ledger"))
	if err != nil {
		return err
	}
	defer runStore.Close()

	runs, err := runStore.ListRuns(ctx, cmd.String("symbol"))
	if err != nil {
		return err
	}

	for _, run := range runs {
		fmt.Printf("%s  %s  %-10s %3dD  sharpe=%.4f cagr=%.4f maxdd=%.4f\n",
			run.Timestamp.Format(time.RFC3339), run.ID, run.Symbol, run.Horizon,
			run.Stats.Sharpe, run.Stats.CAGR, run.Stats.MaxDrawdown)
	}

	return nil
}

func newApp() *cli.Command {
	dateLayouts := cli.TimestampConfig{Layouts: []string{time.DateOnly}}

	return &cli.Command{
		Name:  "backtest",
		Usage: "Walk-forward ridge backtests over daily bars",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the backtest batch described by a config file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the YAML backtest config",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "Bar file or glob (e.g. `data/*.parquet`)",
						Value:   filepath.Join("data", "*.parquet"),
					},
					&cli.StringFlag{
						Name:    "results",
						Aliases: []string{"r"},
						Usage:   "Results output directory",
						Value:   "results",
					},
					&cli.StringFlag{
						Name:  "ledger",
						Usage: "SQLite run ledger path; empty disables the ledger",
					},
					&cli.StringFlag{
						Name:  "publish",
						Usage: "Merge results.json into this file after a successful run",
					},
					&cli.BoolFlag{
						Name:  "no-metrics",
						Usage: "Do not write the Prometheus textfile",
					},
				},
				Action: runAction,
			},
			{
				Name:  "schema",
				Usage: "Print the JSON schema of the backtest config or a download config",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "provider",
						Usage: fmt.Sprintf("Print the download config schema of a provider (%s)", strings.Join(marketdata.GetSupportedProviders(), ", ")),
					},
				},
				Action: schemaAction,
			},
			{
				Name:  "download",
				Usage: "Download daily bars into parquet files",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "tickers",
						Aliases:  []string{"t"},
						Usage:    "Comma-separated ticker symbols",
						Required: true,
					},
					&cli.TimestampFlag{
						Name:     "start",
						Aliases:  []string{"s"},
						Usage:    "Start date in `YYYY-MM-DD` format",
						Config:   dateLayouts,
						Required: true,
					},
					&cli.TimestampFlag{
						Name:    "end",
						Aliases: []string{"e"},
						Usage:   "End date in `YYYY-MM-DD` format. Defaults to today.",
						Value:   time.Now(),
						Config:  dateLayouts,
					},
					&cli.StringFlag{
						Name:    "provider",
						Aliases: []string{"p"},
						Usage:   fmt.Sprintf("Data provider to use (%s, %s)", marketdata.ProviderPolygon, marketdata.ProviderBinance),
						Value:   string(marketdata.ProviderPolygon),
					},
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "Path to the data output directory",
						Value:   "data",
					},
				},
				Action: downloadAction,
			},
			{
				Name:  "runs",
				Usage: "List runs recorded in the SQLite ledger",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "ledger",
						Usage:    "SQLite run ledger path",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "symbol",
						Usage: "Only list runs of this symbol",
					},
				},
				Action: runsAction,
			},
		},
	}
}

// run executes the command line until it finishes or an interrupt cancels it.
func run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newApp().Run(ctx, args)
}

func main() {
	if err := run(os.Args); err != nil {
		log.Print(err)
		os.Exit(1)
	}
}
