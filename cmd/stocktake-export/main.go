package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"stocktake/internal/cli"
	"stocktake/internal/export"
	"stocktake/internal/ledger"
)

func main() {
	what := flag.String("what", "summary", "what to export: summary or history")
	format := flag.String("format", "csv", "output format: csv or xlsx")
	out := flag.String("out", "", "output file (default: timestamped name in the current directory)")
	filter := flag.String("filter", "", "model substring filter, summary only")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	cfg := cli.LoadAndValidateConfig(logger)

	var prefix string
	switch *what {
	case "summary":
		prefix = "Inventory"
	case "history":
		prefix = "History"
	default:
		logger.Error("Unknown export target", "what", *what)
		os.Exit(1)
	}
	if *format != "csv" && *format != "xlsx" {
		logger.Error("Unknown export format", "format", *format)
		os.Exit(1)
	}

	ctx := context.Background()
	res := cli.OpenBackend(ctx, logger, cfg)
	defer cli.CloseBackend(logger, res)

	svc := ledger.New(res.Store, nil)

	path := *out
	if path == "" {
		path = export.Filename(prefix, time.Now(), *format)
	}

	if err := writeExport(ctx, svc, *what, *format, *filter, path); err != nil {
		logger.Error("Export failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", path)
}

func writeExport(ctx context.Context, svc *ledger.Service, what, format, filter, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	switch what {
	case "summary":
		rows, err := svc.Summary(ctx, filter)
		if err != nil {
			return err
		}
		if format == "xlsx" {
			err = export.WriteSummaryXLSX(f, rows)
		} else {
			err = export.WriteSummaryCSV(f, rows)
		}
		if err != nil {
			return err
		}
	case "history":
		txs, err := svc.Transactions(ctx)
		if err != nil {
			return err
		}
		if format == "xlsx" {
			err = export.WriteHistoryXLSX(f, txs)
		} else {
			err = export.WriteHistoryCSV(f, txs)
		}
		if err != nil {
			return err
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
