package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"penguincli/internal/app"
	"penguincli/internal/config"
	"penguincli/internal/infrastructure"
	"penguincli/pkg/contracts"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one report and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("penguin-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "", "path to a YAML config file (defaults to $PENGUIN_CONFIG_FILE, penguin.yaml or configs/penguin.yaml)")
	inPath := fs.String("in", "", "input CSV or XLSX file (defaults to penguins.csv)")
	outPath := fs.String("out", "", "output report file (defaults to penguin_calculations.txt)")
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *showVersion {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return 0
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return 1
	}
	if *inPath != "" {
		cfg.Input.Path = *inPath
	}
	if *outPath != "" {
		cfg.Report.Path = *outPath
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer infrastructure.CloseLogFile()

	tracing, err := infrastructure.InitTracing(cfg.Telemetry)
	if err != nil {
		logger.Error("Failed to initialize tracing", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(ctx); err != nil {
			logger.Warn("Failed to shut down tracing", slog.String("error", err.Error()))
		}
	}()

	application, err := app.NewApplication(cfg, logger, tracing)
	if err != nil {
		logger.Error("Failed to create application", slog.String("error", err.Error()))
		return 1
	}

	result, err := application.Run(context.Background())
	if err != nil {
		fmt.Fprintf(stderr, "penguin-report: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Report written to %s\n", result.ReportPath)
	if result.CSVPath != "" {
		fmt.Fprintf(stdout, "Group averages written to %s\n", result.CSVPath)
	}
	return 0
}
