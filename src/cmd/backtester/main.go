package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"marketreplay/src/analytics"
	"marketreplay/src/backtest"
	"marketreplay/src/feeds"
	"marketreplay/src/models"
	"marketreplay/src/strategies"
	"marketreplay/src/utils"
)

type RunArgs struct {
	ConfigFile string
	DataFile   string
	Symbol     string
	OutDir     string
	Verbose    bool
}

type RunResult struct {
	Summary analytics.Summary
	Fills   []*models.Fill
}

var runCmd = &cobra.Command{
	Use:   "backtester --config config.yaml --data XBTUSD_past1000_days.csv --symbol XBTUSD",
	Short: "Replay historical prices through a moving-average-crossover strategy",
	Run: func(cmd *cobra.Command, args []string) {
		configFile, err := cmd.Flags().GetString("config")
		if err != nil {
			log.Fatalf("error getting config: %v", err)
		}

		dataFile, err := cmd.Flags().GetString("data")
		if err != nil {
			log.Fatalf("error getting data: %v", err)
		}

		symbol, err := cmd.Flags().GetString("symbol")
		if err != nil {
			log.Fatalf("error getting symbol: %v", err)
		}

		outDir, err := cmd.Flags().GetString("out")
		if err != nil {
			log.Fatalf("error getting out: %v", err)
		}

		verbose, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			log.Fatalf("error getting verbose: %v", err)
		}

		result, err := Run(RunArgs{
			ConfigFile: configFile,
			DataFile:   dataFile,
			Symbol:     symbol,
			OutDir:     outDir,
			Verbose:    verbose,
		})

		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		fmt.Print(renderReport(result))
	},
}

func Run(args RunArgs) (RunResult, error) {
	if err := utils.InitEnvironmentVariables(); err != nil {
		return RunResult{}, fmt.Errorf("error initializing environment variables: %w", err)
	}

	if args.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	config := backtest.DefaultConfig()
	if args.ConfigFile != "" {
		var err error
		config, err = backtest.LoadConfig(args.ConfigFile)
		if err != nil {
			return RunResult{}, fmt.Errorf("error loading config: %w", err)
		}
	}

	symbol := models.Symbol(args.Symbol)
	if symbol == "" {
		symbol = models.Symbol(config.Symbol)
	}
	if symbol == "" {
		return RunResult{}, fmt.Errorf("no symbol given: set --symbol or the symbol config option")
	}

	feed, err := feeds.NewCSVFeed(symbol, args.DataFile)
	if err != nil {
		return RunResult{}, fmt.Errorf("error loading data file: %w", err)
	}

	strategy := strategies.NewMACStrategy(symbol, config.FastWindow, config.SlowWindow,
		config.LookbackIntervals, config.VolatilityFraction, float64(config.ContractSize))

	engine, err := backtest.NewBacktest(symbol, strategy, config)
	if err != nil {
		return RunResult{}, fmt.Errorf("error creating backtest: %w", err)
	}

	var fills []*models.Fill
	if err := engine.Subscribe(backtest.TopicOrderFill, func(fill *models.Fill) {
		fills = append(fills, fill)
	}); err != nil {
		return RunResult{}, fmt.Errorf("error subscribing to fills: %w", err)
	}

	if err := engine.Run(feed); err != nil {
		return RunResult{}, fmt.Errorf("error running backtest: %w", err)
	}

	summary, err := analytics.Summarize(engine.EquityCurve, 252)
	if err != nil {
		return RunResult{}, fmt.Errorf("error summarizing equity curve: %w", err)
	}

	if args.OutDir != "" {
		for _, series := range []*backtest.Series{engine.RealizedPnL, engine.UnrealizedPnL, engine.EquityCurve} {
			path, err := analytics.ExportSeriesCSV(args.OutDir, series)
			if err != nil {
				return RunResult{}, fmt.Errorf("error exporting series: %w", err)
			}

			log.Infof("wrote %s", path)
		}
	}

	return RunResult{Summary: summary, Fills: fills}, nil
}

func renderReport(result RunResult) string {
	display := &strings.Builder{}
	p := message.NewPrinter(language.English)

	display.WriteString("Backtest summary:\n")

	table := tablewriter.NewWriter(display)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetColumnSeparator("")

	table.Append([]string{"Starting equity", p.Sprintf("%.0f", result.Summary.StartEquity)})
	table.Append([]string{"Ending equity", p.Sprintf("%.0f", result.Summary.EndEquity)})
	table.Append([]string{"Total return", fmt.Sprintf("%.2f%%", result.Summary.TotalReturn*100)})
	table.Append([]string{"Sharpe ratio", fmt.Sprintf("%.2f", result.Summary.SharpeRatio)})
	table.Append([]string{"Max drawdown", fmt.Sprintf("%.2f%%", result.Summary.MaxDrawdown*100)})
	table.Append([]string{"Fills", fmt.Sprintf("%d", len(result.Fills))})

	table.Render()

	return display.String()
}

func main() {
	runCmd.Flags().String("config", "", "Path to a yaml config file")
	runCmd.Flags().String("data", "", "Path to a csv file of {timestamp, open, close, volume} rows")
	runCmd.Flags().String("symbol", "", "Symbol to backtest")
	runCmd.Flags().String("out", "", "Directory to write the result series to")
	runCmd.Flags().Bool("verbose", false, "Log the per-tick position status")

	runCmd.MarkFlagRequired("data")

	if err := runCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
