package exporter

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"penguincli/internal/dataprocessing"
	apperrors "penguincli/internal/errors"
)

const (
	reportTitle     = "Penguin Data Analysis Report"
	reportUnderline = "==========================="
)

// RenderReport writes the plain-text analysis report. Islands and sexes are
// listed in the order the aggregator returned them, so the same inputs always
// render the same bytes.
func RenderReport(w io.Writer, averages dataprocessing.FlipperAverages, threshold dataprocessing.ThresholdResult) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s\n", reportTitle)
	fmt.Fprintf(bw, "%s\n\n", reportUnderline)

	fmt.Fprintf(bw, "Average Flipper Length (mm) by Island and Sex:\n")
	for _, island := range averages.Islands {
		fmt.Fprintf(bw, "- %s\n", island.Island)
		for _, s := range island.BySex {
			fmt.Fprintf(bw, "  - %s: %.2f mm\n", capitalize(s.Sex), s.Mean)
		}
	}
	fmt.Fprintf(bw, "\n")

	species := threshold.Filter.Species
	fmt.Fprintf(bw, "%s Penguin Analysis:\n", species)
	fmt.Fprintf(bw, "Percentage of %s %ss with above-average body mass: %.2f%%\n",
		threshold.Filter.Sex, species, threshold.Percentage)

	return bw.Flush()
}

// WriteReport renders the report into path, creating parent directories and
// truncating any previous report.
func WriteReport(path string, averages dataprocessing.FlipperAverages, threshold dataprocessing.ThresholdResult) error {
	slog.Info("Writing analysis report",
		slog.String("component", "exporter"),
		slog.String("file_path", path),
		slog.Int("groups", averages.Groups()))

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return apperrors.NewStorageError("failed to create report directory", err).WithContext("path", path)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return apperrors.NewStorageError("failed to create report file", err).WithContext("path", path)
	}

	if err := RenderReport(file, averages, threshold); err != nil {
		file.Close()
		return apperrors.NewStorageError("failed to write report", err).WithContext("path", path)
	}
	if err := file.Close(); err != nil {
		return apperrors.NewStorageError("failed to close report file", err).WithContext("path", path)
	}
	return nil
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s[:size] + strings.ToLower(s[size:])
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
