package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"penguincli/internal/dataprocessing"
)

// GroupAveragesHeader is the header row of the per-group CSV export.
var GroupAveragesHeader = []string{
	"Island",
	"Sex",
	"Count",
	"MinFlipperLengthMM",
	"MaxFlipperLengthMM",
	"MeanFlipperLengthMM",
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes headers and records to filePath, replacing any existing file.
func WriteCSV(filePath string, options WriteOptions) error {
	slog.Info("Writing CSV file",
		slog.String("component", "exporter"),
		slog.String("file_path", filePath),
		slog.Int("record_count", len(options.Records)))

	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}

// GroupAverageRecords flattens the averages into CSV rows, one per
// (island, sex) group, in report order.
func GroupAverageRecords(averages dataprocessing.FlipperAverages) [][]string {
	records := make([][]string, 0, averages.Groups())
	for _, island := range averages.Islands {
		for _, s := range island.BySex {
			records = append(records, []string{
				island.Island,
				s.Sex,
				formatInt(s.Count),
				formatFloat(s.Min),
				formatFloat(s.Max),
				formatFloat(s.Mean),
			})
		}
	}
	return records
}

// WriteGroupAveragesCSV exports the flipper length groups to filePath.
// The file starts with a UTF-8 BOM so spreadsheet tools pick the encoding.
func WriteGroupAveragesCSV(filePath string, averages dataprocessing.FlipperAverages) error {
	return WriteCSV(filePath, WriteOptions{
		Headers:   GroupAveragesHeader,
		Records:   GroupAverageRecords(averages),
		BOMPrefix: true,
	})
}
